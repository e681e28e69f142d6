package grocery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVisionAnswer(t *testing.T) {
	answer, err := parseVisionAnswer(`{"price": "$3.29", "currency": "USD", "found": true}`)
	require.NoError(t, err)
	require.True(t, answer.Found)
	require.Equal(t, "$3.29", answer.Price)
	require.Equal(t, "USD", answer.Currency)

	answer, err = parseVisionAnswer("```json\n{\"price\": \"$4.12\", \"currency\": \"USD\", \"found\": true}\n```")
	require.NoError(t, err)
	require.Equal(t, "$4.12", answer.Price)

	answer, err = parseVisionAnswer(`{"price": "", "currency": "", "found": false}`)
	require.NoError(t, err)
	require.False(t, answer.Found)

	_, err = parseVisionAnswer("I could not find a price on this page.")
	require.Error(t, err)
}
