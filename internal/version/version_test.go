package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldVersion, oldSHA, oldTime })

	assert.Equal(t, "tablecal version dev (commit unknown, built unknown)", String("tablecal"))

	Version, GitSHA, BuildTime = "0.3.0", "abc1234", "2026-10-19T09:00:00Z"
	assert.Equal(t, "tablecal version 0.3.0 (commit abc1234, built 2026-10-19T09:00:00Z)", String("tablecal"))
}
