package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerConfig_Validate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"sqlite://transactions.db", false},
		{"sqlite:///var/lib/bank/transactions.db", false},
		{"postgres://reader:pw@ledger:5432/bank", false},
		{"postgresql://reader@ledger/bank", false},
		{"postgres:///bank", true},
		{"mysql://ledger/bank", true},
		{"transactions.db", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := LedgerConfig{URL: tt.url}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
