package minio

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidEndpoint(t *testing.T) {
	cfg := filestore.DefaultConfig(filestore.ProviderMinIO, "localhost:9000/bucket", "key", "secret")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestObjectInfo(t *testing.T) {
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   miniogo.ObjectInfo
		want filestore.ObjectInfo
	}{
		{
			name: "object",
			in:   miniogo.ObjectInfo{Key: "images/a.png", Size: 5, ContentType: "image/png", ETag: "abc", LastModified: modified},
			want: filestore.ObjectInfo{Key: "images/a.png", Size: 5, ContentType: "image/png", ETag: "abc", LastModified: modified},
		},
		{
			name: "common prefix",
			in:   miniogo.ObjectInfo{Key: "images/"},
			want: filestore.ObjectInfo{Key: "images/", Size: -1, IsDir: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectInfo(tt.in))
		})
	}
}
