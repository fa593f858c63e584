package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeReply(t *testing.T) {
	assert.Equal(t, "G-code locked out during alarm or jog state", DescribeReply("error:9"))
	assert.Equal(t, "unknown error code 99", DescribeReply("error:99"))
	assert.Equal(t, "alarm: hard limit triggered", DescribeReply("ALARM:1"))
	assert.Equal(t, "unknown alarm code 42", DescribeReply("ALARM:42"))
	assert.Equal(t, "", DescribeReply("ok"))
	assert.Equal(t, "", DescribeReply("error:x"))
	assert.Equal(t, "", DescribeReply(""))
}
