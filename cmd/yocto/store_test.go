package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want location
	}{
		{"db.yocto", location{path: "db.yocto"}},
		{"file:///tmp/db.yocto", location{path: "/tmp/db.yocto"}},
		{"s3://bucket/db.yocto", location{scheme: "s3", bucket: "bucket", name: "db.yocto"}},
		{"s3://bucket/a/b/db.yocto", location{scheme: "s3", bucket: "bucket", prefix: "a/b", name: "db.yocto"}},
		{"minio://localhost:9000/bucket/dbs/db.yocto", location{scheme: "minio", host: "localhost:9000", bucket: "bucket", prefix: "dbs", name: "db.yocto"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLocation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.scheme != "", got.remote())
		})
	}

	loc, err := parseLocation("minio://localhost:9000/bucket/dbs/db.yocto")
	require.NoError(t, err)
	assert.Equal(t, "minio://localhost:9000/bucket/dbs/db.yocto", loc.String())
}

func TestParseLocation_Errors(t *testing.T) {
	for _, in := range []string{
		"ftp://host/db.yocto",
		"s3://bucket",
		"s3://bucket/",
		"minio://localhost:9000/bucket",
	} {
		_, err := parseLocation(in)
		assert.ErrorIs(t, err, errUsage, in)
	}
}

func TestOpenDatabase_Local(t *testing.T) {
	db, _ := buildFruits(t)
	d, err := openDatabase(context.Background(), location{path: db})
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 4, d.DocumentsCount())

	_, err = openDatabase(context.Background(), location{path: filepath.Join(t.TempDir(), "missing.yocto")})
	assert.Error(t, err)
}
