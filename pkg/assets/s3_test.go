package assets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, aws.ToString(in.Bucket)+"/"+key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("binary/octet-stream"),
		LastModified:  aws.Time(time.Unix(1700000000, 0)),
		ETag:          aws.String(`"etag"`),
	}, nil
}

func TestS3SourceOpen(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"web/v1/styles.css": "body{}"}}
	src := NewS3Source(client, "dash-assets", "web/v1")

	rc, info, err := src.Open(context.Background(), "styles.css")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "body{}" {
		t.Errorf("body = %q", data)
	}
	if info.Size != 6 || info.ETag != `"etag"` || info.ModTime.IsZero() {
		t.Errorf("info = %+v", info)
	}
	if !strings.HasPrefix(info.ContentType, "text/css") {
		t.Errorf("content type = %q, want text/css from extension", info.ContentType)
	}
	if client.keys[0] != "dash-assets/web/v1/styles.css" {
		t.Errorf("requested %q", client.keys[0])
	}
}

func TestS3SourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeS3
		object  string
		wantErr error
	}{
		{"missing key", &fakeS3{}, "nope.js", ErrNotFound},
		{"not found", &fakeS3{err: &types.NotFound{}}, "nope.js", ErrNotFound},
		{"traversal", &fakeS3{}, "../secret", ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewS3Source(tt.client, "b", "").Open(context.Background(), tt.object)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, _, err := NewS3Source(&fakeS3{err: errors.New("access denied")}, "b", "").Open(context.Background(), "a.js")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Open() error = %v, want wrapped backend failure", err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Config{Region: "auto", Endpoint: "http://127.0.0.1:9000", Anonymous: true})
	opts := c.Options()
	if !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://127.0.0.1:9000" {
		t.Errorf("options = %+v", opts)
	}
	if _, ok := opts.Credentials.(aws.AnonymousCredentials); !ok {
		t.Errorf("credentials = %T, want AnonymousCredentials", opts.Credentials)
	}
}
