package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"gradtrends/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{core.NewSourceError("applicants", core.NewMalformedHeaderError("x", 1, 2, 2)), CodeSourceInvalid},
		{core.NewDuplicateKeyError("grad_rate", "WSU", 2001), CodeMergeFailed},
		{core.NewMissingColumnError("fin_aid_ratio"), CodeInvalidInput},
		{fmt.Errorf("disk full"), CodeInternalError},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Classify(tt.err))
	}
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ConfigInvalid("PORT must be set"), "loading config")
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Equal(t, "loading config: PORT must be set", err.Error())

	err = Wrapf(core.NewColumnCollisionError("fin_aid", "same role"), "run %d", 3)
	assert.Equal(t, CodeMergeFailed, GetCode(err))
	assert.True(t, stderrors.Is(err, core.ErrColumnCollision))

	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeStorageError, fmt.Errorf("connection refused"))
	assert.Equal(t, CodeStorageError, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidInput))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(CodeSourceInvalid))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeStorageError))
}
