package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/emrgen/coa/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// KVDataKey holds the JSON array of every COA.
	KVDataKey = "coa_data"
	// KVConfigKey holds the code indexed projection read by the site config.
	KVConfigKey = "config_coas"
)

// KV is the raw key-value surface the legacy manager needs.
type KV interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	SetRawPipelined(ctx context.Context, values map[string][]byte) error
}

// ConfigCOA is the per-code summary stored under KVConfigKey.
type ConfigCOA struct {
	ClientName   string   `json:"clientName"`
	Compound     string   `json:"compound"`
	AnalysisType string   `json:"analysisType"`
	TestDate     string   `json:"testDate"`
	Status       string   `json:"status"`
	Purity       *float64 `json:"purity,omitempty"`
	Result       *string  `json:"result,omitempty"`
	FileURL      string   `json:"fileUrl,omitempty"`
}

var (
	_ COAManager = (*KVCOAManager)(nil)
	_ COAFiles   = (*KVCOAManager)(nil)
)

// KVCOAManager keeps the whole COA list under a single key. Code uniqueness
// is checked here since the store has no index.
type KVCOAManager struct {
	kv     KV
	prefix string
	now    func() time.Time
	mu     sync.Mutex
}

func NewKVCOAManager(kv KV, prefix string) *KVCOAManager {
	if prefix == "" {
		prefix = DefaultCOAPrefix
	}
	return &KVCOAManager{kv: kv, prefix: prefix, now: time.Now}
}

func (m *KVCOAManager) GetAllCOAs(ctx context.Context) ([]*COA, error) {
	coas, err := m.load(ctx)
	metrics.ObserveCOA("list", err)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(coas)
	return coas, nil
}

func (m *KVCOAManager) GetCOAByID(ctx context.Context, code string) (*COA, error) {
	coas, err := m.load(ctx)
	metrics.ObserveCOA("get", err)
	if err != nil {
		return nil, err
	}
	if i := indexOfCode(coas, strings.TrimSpace(code)); i >= 0 {
		return coas[i], nil
	}
	return nil, nil
}

func (m *KVCOAManager) AddCOA(ctx context.Context, input COAInput) (*COA, error) {
	input, err := validateCOAInput(input)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coas, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if indexOfCode(coas, input.CoaID) >= 0 {
		metrics.ObserveCOA("add", ErrDuplicate)
		return nil, fmt.Errorf("add coa %s: %w", input.CoaID, ErrDuplicate)
	}

	now := m.now().UTC()
	coa := &COA{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	applyInputToView(coa, input)
	coas = append(coas, coa)

	err = m.save(ctx, coas)
	metrics.ObserveCOA("add", err)
	if err != nil {
		return nil, err
	}

	logrus.Infof("coa %s added to kv store", coa.CoaID)
	return coa, nil
}

func (m *KVCOAManager) UpdateCOA(ctx context.Context, code string, input COAInput) (*COA, error) {
	input, err := validateCOAInput(input)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coas, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOfCode(coas, strings.TrimSpace(code))
	if i < 0 {
		return nil, fmt.Errorf("update coa %s: %w", code, ErrNotFound)
	}
	if input.CoaID != coas[i].CoaID && indexOfCode(coas, input.CoaID) >= 0 {
		return nil, fmt.Errorf("update coa %s: %w", code, ErrDuplicate)
	}

	coa := coas[i]
	applyInputToView(coa, input)
	coa.UpdatedAt = m.now().UTC()

	err = m.save(ctx, coas)
	metrics.ObserveCOA("update", err)
	if err != nil {
		return nil, err
	}
	return coa, nil
}

func (m *KVCOAManager) DeleteCOA(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coas, err := m.load(ctx)
	if err != nil {
		return err
	}
	i := indexOfCode(coas, strings.TrimSpace(code))
	if i < 0 {
		return fmt.Errorf("delete coa %s: %w", code, ErrNotFound)
	}

	err = m.save(ctx, slices.Delete(coas, i, i+1))
	metrics.ObserveCOA("delete", err)
	return err
}

func (m *KVCOAManager) SearchCOAs(ctx context.Context, query string) ([]*COA, error) {
	coas, err := m.GetAllCOAs(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return coas, nil
	}

	matches := make([]*COA, 0)
	for _, coa := range coas {
		for _, field := range []string{coa.CoaID, coa.ClientName, coa.Compound, coa.AnalysisType} {
			if strings.Contains(strings.ToLower(field), query) {
				matches = append(matches, coa)
				break
			}
		}
	}
	return matches, nil
}

func (m *KVCOAManager) GenerateCOAID(ctx context.Context) (string, error) {
	coas, err := m.load(ctx)
	metrics.ObserveCOA("generate_id", err)
	if err != nil {
		return "", err
	}

	prefix := fmt.Sprintf("%s-%d-", m.prefix, m.now().Year())
	codes := make([]string, 0, len(coas))
	for _, coa := range coas {
		codes = append(codes, coa.CoaID)
	}
	return nextCOAID(prefix, codes), nil
}

func (m *KVCOAManager) UploadFile(context.Context, string, string, io.Reader) (*COA, error) {
	return nil, fmt.Errorf("upload file: %w", ErrUnsupported)
}

func (m *KVCOAManager) DeleteFile(context.Context, string) (*COA, error) {
	return nil, fmt.Errorf("delete file: %w", ErrUnsupported)
}

func (m *KVCOAManager) load(ctx context.Context) ([]*COA, error) {
	data, ok, err := m.kv.GetRaw(ctx, KVDataKey)
	if err != nil {
		logrus.Errorf("error reading %s: %v", KVDataKey, err)
		return nil, fmt.Errorf("read coas: %w", err)
	}
	coas := make([]*COA, 0)
	if !ok || len(data) == 0 {
		return coas, nil
	}
	if err := json.Unmarshal(data, &coas); err != nil {
		logrus.Errorf("error decoding %s: %v", KVDataKey, err)
		return nil, fmt.Errorf("decode coas: %w", err)
	}
	return coas, nil
}

// save writes the list and its config projection in one transaction.
func (m *KVCOAManager) save(ctx context.Context, coas []*COA) error {
	data, err := json.Marshal(coas)
	if err != nil {
		return err
	}

	projection := make(map[string]ConfigCOA, len(coas))
	for _, coa := range coas {
		projection[coa.CoaID] = ConfigCOA{
			ClientName:   coa.ClientName,
			Compound:     coa.Compound,
			AnalysisType: coa.AnalysisType,
			TestDate:     coa.TestDate,
			Status:       coa.Status,
			Purity:       coa.Purity,
			Result:       coa.Result,
			FileURL:      coa.FileURL,
		}
	}
	config, err := json.Marshal(projection)
	if err != nil {
		return err
	}

	if err := m.kv.SetRawPipelined(ctx, map[string][]byte{KVDataKey: data, KVConfigKey: config}); err != nil {
		logrus.Errorf("error writing coas: %v", err)
		return fmt.Errorf("write coas: %w", err)
	}
	return nil
}

func applyInputToView(coa *COA, input COAInput) {
	coa.CoaID = input.CoaID
	coa.ClientName = input.ClientName
	coa.Compound = input.Compound
	coa.AnalysisType = input.AnalysisType
	coa.TestDate = input.TestDate
	coa.Status = input.Status
	coa.Purity = input.Purity
	coa.Result = input.Result
	coa.Notes = input.Notes
}

func indexOfCode(coas []*COA, code string) int {
	return slices.IndexFunc(coas, func(c *COA) bool { return c.CoaID == code })
}

func sortNewestFirst(coas []*COA) {
	slices.SortStableFunc(coas, func(a, b *COA) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
