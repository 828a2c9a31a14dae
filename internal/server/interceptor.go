package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/coa/internal/metrics"
	"github.com/emrgen/coa/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const authorization = "Authorization"

// RequestTimeMiddleware logs the request time and records the request metrics.
func RequestTimeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqTime := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(reqTime.Seconds())
		logrus.Infof("request time: %s %s: %v", c.Request.Method, route, reqTime)
	}
}

// RecoveryMiddleware turns a handler panic into a 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.Errorf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: service.Message(errors.New("panic"))})
	})
}

// AdminAuth only lets requests carrying the admin bearer token through.
// Without a configured token every admin route is refused.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			writeError(c, fmt.Errorf("%w: admin access is disabled", service.ErrPermission))
			return
		}

		accessToken, err := accessTokenFromHeader(c.Request.Header, authorization)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}
		if subtle.ConstantTimeCompare([]byte(accessToken), []byte(token)) != 1 {
			writeError(c, fmt.Errorf("%w: invalid admin token", service.ErrPermission))
			return
		}

		c.Next()
	}
}

func accessTokenFromHeader(headers http.Header, header string) (string, error) {
	val := headers.Get(header)
	if val == "" {
		return "", errors.New("authorization header not found")
	}

	scheme, authToken, ok := strings.Cut(val, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header must be a bearer token")
	}

	authToken = strings.TrimSpace(authToken)
	if authToken == "" {
		return "", errors.New("bearer token is empty")
	}
	return authToken, nil
}
