package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateNamespace(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		wantErr   bool
	}{
		{name: "simple", namespace: "default"},
		{name: "hyphenated", namespace: "kube-system"},
		{name: "digits", namespace: "team1"},
		{name: "empty", namespace: "", wantErr: true},
		{name: "uppercase", namespace: "Default", wantErr: true},
		{name: "leading hyphen", namespace: "-prod", wantErr: true},
		{name: "dot", namespace: "a.b", wantErr: true},
		{name: "too long", namespace: strings.Repeat("a", 64), wantErr: true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateNamespace(tt.namespace)
			if tt.wantErr {
				assert.Error(t, err)
				assert.IsType(t, &ValidationError{}, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidator_ValidateName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "deployment pod", value: "web-7d9f8b6c5-x2k4p"},
		{name: "dotted", value: "web.v1"},
		{name: "empty", value: "", wantErr: "pod name is required"},
		{name: "slash", value: "web/1", wantErr: `invalid pod name "web/1"`},
		{name: "too long", value: strings.Repeat("a", 254), wantErr: "invalid pod name"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateName("pod", tt.value)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
