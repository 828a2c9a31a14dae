package coa

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "http://coa.test"

func newTestClient(t *testing.T) *Client {
	c := NewClient(testAddress, "secret")
	gock.InterceptClient(c.http)
	t.Cleanup(func() {
		gock.RestoreClient(c.http)
		gock.Off()
	})
	return c
}

func TestCreateCOA(t *testing.T) {
	c := newTestClient(t)

	gock.New(testAddress).
		Post("/api/coas").
		MatchHeader("Authorization", "^Bearer secret$").
		JSON(map[string]string{"coaId": "ZT-2024-001", "clientName": "Acme", "compound": "BPC-157"}).
		Reply(http.StatusCreated).
		JSON(map[string]any{"id": "row-1", "coaId": "ZT-2024-001", "status": "pending"})

	coa, err := c.CreateCOA(context.Background(), Input{CoaID: "ZT-2024-001", ClientName: "Acme", Compound: "BPC-157"})
	require.NoError(t, err)
	assert.Equal(t, "row-1", coa.ID)
	assert.Equal(t, "pending", coa.Status)
	assert.True(t, gock.IsDone())
}

func TestGetCOANotFound(t *testing.T) {
	c := newTestClient(t)

	gock.New(testAddress).
		Get("/api/coas/ZT-2024-404").
		Reply(http.StatusNotFound).
		JSON(map[string]string{"error": "The requested record could not be found."})

	_, err := c.GetCOA(context.Background(), "ZT-2024-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "The requested record could not be found.", apiErr.Message)
}

func TestSearchAndDelete(t *testing.T) {
	c := newTestClient(t)

	gock.New(testAddress).
		Get("/api/coas").
		MatchParam("q", "bpc").
		Reply(http.StatusOK).
		JSON([]map[string]any{{"coaId": "ZT-2024-001"}})
	gock.New(testAddress).
		Delete("/api/coas/ZT-2024-001").
		Reply(http.StatusNoContent)

	found, err := c.SearchCOAs(context.Background(), "bpc")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, c.DeleteCOA(context.Background(), "ZT-2024-001"))
	assert.True(t, gock.IsDone())
}

func TestUploadFile(t *testing.T) {
	c := newTestClient(t)

	gock.New(testAddress).
		Post("/api/coas/ZT-2024-001/file").
		MatchHeader("Content-Type", "^multipart/form-data").
		Reply(http.StatusOK).
		JSON(map[string]any{"coaId": "ZT-2024-001", "fileUrl": "http://coa.test/storage/v1/object/public/coa-files/coas/ZT-2024-001_1.pdf"})

	coa, err := c.UploadFile(context.Background(), "ZT-2024-001", "sample.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Contains(t, coa.FileURL, "ZT-2024-001")
}
