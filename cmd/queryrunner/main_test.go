package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	err := dispatch([]string{"frobnicate"})
	assert.Error(t, err)
}

func TestDispatchRequiresArguments(t *testing.T) {
	err := dispatch(nil)
	assert.Error(t, err)
}

func TestDispatchDescribeRequiresPluginName(t *testing.T) {
	err := dispatch([]string{"describe"})
	assert.Error(t, err)
}

func TestDispatchRunRequiresPluginAndConnection(t *testing.T) {
	err := dispatch([]string{"run", "only-plugin"})
	assert.Error(t, err)
}
