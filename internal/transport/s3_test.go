package transport

import "testing"

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{url: "s3://bucket/key.bin", bucket: "bucket", key: "key.bin"},
		{url: "s3://bucket/dir/nested/key.bin", bucket: "bucket", key: "dir/nested/key.bin"},
		{url: "s3://bucket", wantErr: true},
		{url: "s3://bucket/", wantErr: true},
		{url: "s3://bucket/folder/", wantErr: true},
		{url: "https://bucket/key", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s/%s", bucket, key)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3URL: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Fatalf("got %s/%s, want %s/%s", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
