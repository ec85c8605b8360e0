package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tt := []struct {
		name string
		in   string
		out  string
		err  error
	}{
		{name: "plain", in: "Hello", out: "Hello"},
		{name: "trim", in: "  Hello \n", out: "Hello"},
		{name: "control characters", in: "He\x00l\tl\x7fo\u0085", out: "Hello"},
		{name: "multilingual", in: "Ой 世", out: "Ой 世"},
		{name: "emoji", in: "ok 👍", out: "ok 👍"},
		{name: "only controls", in: "\x01\x02\n", err: ErrValidation},
		{name: "empty", in: "", err: ErrValidation},
		{name: "invalid utf8", in: "ab\xff", err: ErrEncoding},
		{name: "limit", in: strings.Repeat("a", 11), err: ErrValidation},
		{name: "limit multibyte", in: strings.Repeat("世", 4), err: ErrValidation},
		{name: "at limit", in: strings.Repeat("a", 10), out: strings.Repeat("a", 10)},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			out, err := Sanitize(tc.in, 10)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}
}
