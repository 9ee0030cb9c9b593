package netpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyString(t *testing.T) {
	for _, test := range []struct {
		ready Ready
		exp   string
	}{
		{0, "None"},
		{Readable, "Readable"},
		{Writable | Readable, "Readable|Writable"},
		{Readable | Hup | Error, "Readable|Hup|Error"},
		{Error, "Error"},
	} {
		t.Run(test.exp, func(t *testing.T) {
			assert.Equal(t, test.exp, test.ready.String())
		})
	}
}

func TestReadyPredicates(t *testing.T) {
	r := Readable | Hup
	assert.True(t, r.IsReadable())
	assert.False(t, r.IsWritable())
	assert.True(t, r.IsHup())
	assert.False(t, r.IsError())
	assert.True(t, r.Contains(Hup))
	assert.False(t, r.Contains(Hup|Writable))
}

func TestTriggerString(t *testing.T) {
	assert.Equal(t, "Edge", Edge.String())
	assert.Equal(t, "Level", Level.String())
	assert.Equal(t, "OneShot", OneShot.String())
	assert.Equal(t, "Trigger(9)", Trigger(9).String())
}

func TestValidate(t *testing.T) {
	for _, interest := range []Ready{0, Hup, Error, Hup | Error} {
		for _, trigger := range []Trigger{Edge, Level, OneShot} {
			assert.ErrorIs(t, validate(interest, trigger), ErrInvalidInterest, "%s %s", interest, trigger)
		}
	}
	for _, interest := range []Ready{Readable, Writable, Readable | Writable, Readable | Hup, Writable | Error} {
		assert.NoError(t, validate(interest, Level), "%s", interest)
	}
	assert.ErrorIs(t, validate(Readable, Trigger(3)), ErrInvalidInterest)
}
