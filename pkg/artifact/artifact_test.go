package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewLocal(dir)

	path, err := sink.Save(context.Background(), "arqv30_analysis_session_1_a.json", "application/json", strings.NewReader(`{"a":1}`))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(dir, "arqv30_analysis_session_1_a.json") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("content = %q", data)
	}

	if _, err := sink.Save(context.Background(), "arqv30_analysis_session_1_a.json", "", strings.NewReader(`{}`)); err != nil {
		t.Fatalf("overwrite without content type: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected a single file after overwrite, got %d", len(entries))
	}
}

func TestLocalSaveRejectsTraversal(t *testing.T) {
	sink := NewLocal(t.TempDir())
	if _, err := sink.Save(context.Background(), "../escape.html", "text/html", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for traversal name")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	b, _ := io.ReadAll(params.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Save(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3WithClient(client, "reports", "/arqv30/")

	loc, err := sink.Save(context.Background(), "arqv30_report_s.html", "text/html; charset=utf-8", strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loc != "s3://reports/arqv30/arqv30_report_s.html" {
		t.Fatalf("location = %q", loc)
	}
	if aws.ToString(client.input.Key) != "arqv30/arqv30_report_s.html" || aws.ToString(client.input.ContentType) != "text/html; charset=utf-8" {
		t.Fatalf("unexpected input: key=%s type=%s", aws.ToString(client.input.Key), aws.ToString(client.input.ContentType))
	}
	if client.body != "<html></html>" {
		t.Fatalf("body = %q", client.body)
	}

	client.err = errors.New("access denied")
	if _, err := sink.Save(context.Background(), "x.json", "application/json", strings.NewReader("{}")); !errors.Is(err, client.err) {
		t.Fatalf("Save err = %v, want wrapped access denied", err)
	}
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "file.json", want: "file.json"},
		{name: "simple prefix", prefix: "root", key: "file.json", want: "root/file.json"},
		{name: "prefix trailing slash", prefix: "root/", key: "file.json", want: "root/file.json"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/file.json", want: "root/file.json"},
		{name: "nested prefix", prefix: "root/sub", key: "file.json", want: "root/sub/file.json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}
