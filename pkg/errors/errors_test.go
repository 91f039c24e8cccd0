package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetail_KeepsSentinelIdentity(t *testing.T) {
	sentinel := New(ErrCodeInsufficientStock, "库存不足")

	err := WithDetail(sentinel, "product=%d want=%d have=%d", 7, 3, 1)

	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "product=7")
	assert.Equal(t, sentinel.Message, err.Message)
}

func TestIs_ThroughFmtWrap(t *testing.T) {
	sentinel := New(ErrCodeCartEmpty, "购物车为空")
	wrapped := fmt.Errorf("步骤[0:校验购物车]执行失败: %w", WithDetail(sentinel, "user=1"))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, ErrInternal))

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrCodeCartEmpty, appErr.Code)
}

func TestGetAppError_PlainError(t *testing.T) {
	appErr := GetAppError(errors.New("connection refused"))

	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.False(t, IsAppError(errors.New("x")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[int]int{
		ErrCodeInsufficientStock:    http.StatusConflict,
		ErrCodeCartValidationFailed: http.StatusConflict,
		ErrCodeInvalidOrderStatus:   http.StatusBadRequest,
		ErrCodeCartEmpty:            http.StatusBadRequest,
		ErrCodeOrderNotFound:        http.StatusNotFound,
		ErrCodeInvalidToken:         http.StatusUnauthorized,
		ErrCodeForbidden:            http.StatusForbidden,
		ErrCodeInvalidState:         http.StatusInternalServerError,
		ErrCodeUnavailable:          http.StatusServiceUnavailable,
		ErrCodeInvalidParams:        http.StatusBadRequest,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code=%d", code)
	}
}
