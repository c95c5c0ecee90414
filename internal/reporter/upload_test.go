package reporter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeS3 struct {
	objects map[string]string
	types   map[string]string
	fail    bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, errors.New("AccessDenied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	cases := []struct {
		raw     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{raw: "s3://reports/docspectre/prod/", bucket: "reports", prefix: "docspectre/prod"},
		{raw: "s3://reports", bucket: "reports", prefix: ""},
		{raw: "https://reports/x", wantErr: true},
		{raw: "s3:///x", wantErr: true},
	}

	for _, tc := range cases {
		bucket, prefix, err := ParseS3URL(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseS3URL(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil || bucket != tc.bucket || prefix != tc.prefix {
			t.Fatalf("ParseS3URL(%q) = %q, %q, %v", tc.raw, bucket, prefix, err)
		}
	}
}

func TestS3UploaderUpload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "docspectre-20260217-093000.json")
	if err := os.WriteFile(file, []byte(`{"tool":"docspectre"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	u := NewS3UploaderWithClient(client, "reports", "prod", zerolog.Nop())

	urls, err := u.Upload(context.Background(), []string{file})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	key := "reports/prod/docspectre-20260217-093000.json"
	if len(urls) != 1 || urls[0] != "s3://"+key {
		t.Fatalf("unexpected URLs %v", urls)
	}
	if client.objects[key] != `{"tool":"docspectre"}` {
		t.Fatalf("unexpected object body %q", client.objects[key])
	}
	if client.types[key] != "application/json" {
		t.Fatalf("unexpected content type %q", client.types[key])
	}
}

func TestS3UploaderFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.csv")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	u := NewS3UploaderWithClient(&fakeS3{fail: true}, "reports", "", zerolog.Nop())
	if _, err := u.Upload(context.Background(), []string{file}); err == nil {
		t.Fatal("expected upload error")
	}
}
