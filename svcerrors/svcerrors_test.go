// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package svcerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServiceError(t *testing.T) {

	var err *ServiceError
	errorMessage := "this is a simple test error message"
	errorTemplate := `Invalid ServiceError, received %v:"%v", expected %v:"%v"`

	err = New(StartupFailure, errorMessage)
	if (err.Code != StartupFailure) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, StartupFailure, errorMessage)
	}

	err = New(InstallFailure)
	if (err.Code != InstallFailure) || (err.Text != err.Code.String()) {
		t.Errorf(errorTemplate, err.Code, err.Text, InstallFailure, err.Code.String())
	}

	err = New(errorMessage)
	if (err.Code != Unknown) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, Unknown, errorMessage)
	}

	err = New(errors.New(errorMessage))
	if (err.Code != Unknown) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, Unknown, errorMessage)
	}

	err = New(UninstallFailure, errors.New(errorMessage))
	if (err.Code != UninstallFailure) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, UninstallFailure, errorMessage)
	}

	err = New(New(RuntimeFailure, errorMessage))
	if (err.Code != RuntimeFailure) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, RuntimeFailure, errorMessage)
	}

	err = New(New(errorMessage), StartupFailure)
	if (err.Code != StartupFailure) || (err.Text != errorMessage) {
		t.Errorf(errorTemplate, err.Code, err.Text, StartupFailure, errorMessage)
	}

	err = New()
	if (err.Code != Internal) || (err.Text != errorMessageInvalidInputParameters) {
		t.Errorf(errorTemplate, err.Code, err.Text, Internal, errorMessageInvalidInputParameters)
	}

	err = New(42)
	assert.Equal(t, Internal, err.Code)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "service startup failure", New(StartupFailure).Error())
	assert.Equal(t, "service install failure: access denied", New(InstallFailure, "access denied").Error())
	assert.Equal(t, "error code 99", ErrorCode(99).String())
}

func TestIs(t *testing.T) {
	err := Errorf(RuntimeFailure, "status report failed, err=%v", "boom")
	assert.True(t, Is(err, RuntimeFailure))
	assert.False(t, Is(err, StartupFailure))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, Is(wrapped, RuntimeFailure))

	assert.False(t, Is(errors.New("plain"), RuntimeFailure))
	assert.False(t, Is(nil, RuntimeFailure))
}
