package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"content-forge/collaborators"
)

func TestDeductOutcome(t *testing.T) {
	boom := errors.New("write conflict")
	tests := []struct {
		name    string
		err     error
		want    collaborators.DeductOutcome
		wantErr error
	}{
		{"committed", nil, collaborators.DeductCharged, nil},
		{"already charged", errAlreadyCharged, collaborators.DeductAlreadyCharged, nil},
		{"wrapped already charged", fmt.Errorf("txn: %w", errAlreadyCharged), collaborators.DeductAlreadyCharged, nil},
		{"insufficient", errInsufficientCredits, collaborators.DeductInsufficient, nil},
		{"failure", boom, collaborators.DeductInsufficient, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deductOutcome(tt.err)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
