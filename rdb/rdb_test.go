package rdb

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	cause := errors.New("table users already exists")
	err := StoreError(cause, "create table %s", "users")

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrSchema))
	assert.Equal(t, "store error: create table users: table users already exists", err.Error())

	var failure *StoreFailure
	assert.True(t, errors.As(err, &failure))
	assert.Equal(t, "create table users", failure.Message)

	err = StoreError(nil, "update %s affected no rows", "users")
	assert.True(t, errors.Is(err, ErrStore))
	assert.Equal(t, "store error: update users affected no rows", err.Error())
}

func TestWrappedSentinels(t *testing.T) {
	err := errors.Wrapf(ErrAttribute, "column %q", "age")
	assert.True(t, errors.Is(err, ErrAttribute))
	assert.Equal(t, `column "age": undeclared column`, err.Error())
}
