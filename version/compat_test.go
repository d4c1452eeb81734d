package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleAcceptsExactMinimum(t *testing.T) {
	assert.True(t, Compatible(MinMainnet, "mainnet"))
	assert.True(t, Compatible(MinTestnet, "testnet"))
}

func TestCompatibleAcceptsNewer(t *testing.T) {
	assert.True(t, Compatible("9.9.9", "mainnet"))
}

func TestCompatibleRejectsOlder(t *testing.T) {
	assert.False(t, Compatible("0.0.1", "mainnet"))
	assert.False(t, Compatible("1.2.2", "testnet"))
}

func TestCompatibleAcceptsNonTripletVersions(t *testing.T) {
	assert.True(t, Compatible("dev-build", "mainnet"))
}

func TestCompatibleUsesDifferentFloorsPerNetwork(t *testing.T) {
	assert.False(t, Compatible("1.3.0", "mainnet"))
	assert.True(t, Compatible("1.3.0", "testnet"))
}
