package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "v1.2.3"

	v, commit, date := Info()
	assert.Equal(t, "v1.2.3", v)
	assert.Equal(t, GitCommit, commit)
	assert.Equal(t, BuildDate, date)
	assert.Contains(t, String(), "kyclens v1.2.3 (commit: ")
}
