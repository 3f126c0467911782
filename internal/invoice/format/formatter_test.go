package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{DefaultInvoiceNumberTemplate, 1, "1778-001"},
		{DefaultInvoiceNumberTemplate, 1234, "1778-1234"},
		{"INV-{YYYY}{MM}{DD}-{SEQ}", 7, "INV-20240304-7"},
		{"{PROJECT}/{YY}/{SEQ5}", 42, "1778/24/00042"},
	}
	for _, tc := range cases {
		got, err := FormatInvoiceNumber(tc.template, issued, "1778", tc.seq)
		require.NoError(t, err, tc.template)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	issued := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	_, err := FormatInvoiceNumber("", issued, "1", 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, "1", 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("{PROJECT}-{CUSTOMER}", issued, "1", 1)
	assert.Error(t, err)
}
