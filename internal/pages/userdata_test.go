// internal/pages/userdata_test.go
package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutUserData_Valid(t *testing.T) {
	data, err := NewCheckoutUserData("John", "Doe", "12345")

	require.NoError(t, err)
	assert.Equal(t, "John", data.FirstName())
	assert.Equal(t, "Doe", data.LastName())
	assert.Equal(t, "12345", data.PostalCode())
	assert.NoError(t, data.Validate())
}

func TestCheckoutUserData_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   []string
	}{
		{
			name:   "missing first_name",
			fields: map[string]string{"last_name": "Doe", "postal_code": "12345"},
			want:   []string{"first_name"},
		},
		{
			name:   "missing last_name",
			fields: map[string]string{"first_name": "John", "postal_code": "12345"},
			want:   []string{"last_name"},
		},
		{
			name:   "missing postal_code",
			fields: map[string]string{"first_name": "John", "last_name": "Doe"},
			want:   []string{"postal_code"},
		},
		{
			name:   "empty first_name",
			fields: map[string]string{"first_name": "", "last_name": "Doe", "postal_code": "12345"},
			want:   []string{"first_name"},
		},
		{
			name:   "everything missing is reported at once",
			fields: map[string]string{},
			want:   []string{"first_name", "last_name", "postal_code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCheckoutUserData(tt.fields)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.FieldNames())
			for _, f := range tt.want {
				assert.Contains(t, err.Error(), f)
			}
		})
	}
}

func TestCheckoutUserData_EmptyFieldsViaConstructor(t *testing.T) {
	_, err := NewCheckoutUserData("", "Doe", "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"first_name", "postal_code"}, verr.FieldNames())
	assert.NotContains(t, err.Error(), "last_name")
}

func TestCheckoutUserData_ZeroValueIsInvalid(t *testing.T) {
	var data CheckoutUserData
	assert.ErrorIs(t, data.Validate(), ErrValidation)
}
