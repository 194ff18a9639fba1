package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsSmallFIFO(t *testing.T) {
	o := Default()
	o.FIFOSize = 1
	assert.Error(t, o.Validate())
}

func TestValidateRejectsZeroRTRSlots(t *testing.T) {
	o := Default()
	o.PendingRTRSlots = 0
	assert.Error(t, o.Validate())
}
