package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := [3]string{Version, GitSHA, BuildTime}
	t.Cleanup(func() { Version, GitSHA, BuildTime = orig[0], orig[1], orig[2] })

	Version, GitSHA, BuildTime = "v1.2.0", "abc1234", "2024-05-01T10:00:00Z"
	assert.Equal(t, "lensmap v1.2.0 (commit abc1234, built 2024-05-01T10:00:00Z)", String())
}
