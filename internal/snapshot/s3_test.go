package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 stores objects in memory. Only single-part uploads are supported,
// which is all the upload manager uses for small bodies.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	now     time.Time
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucketPrefix := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		if key, ok := strings.CutPrefix(k, bucketPrefix); ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for i, k := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[bucketPrefix+k]))),
			LastModified: aws.Time(f.now.Add(time.Duration(i) * time.Minute)),
		})
	}
	return out, nil
}

var errMultipart = errors.New("multipart uploads not supported by fake")

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Sink(t *testing.T) {
	sinkContract(t, func(t *testing.T) Sink {
		return NewS3SinkWithClient(newFakeS3(), "bucket", "catalogs/")
	})

	t.Run("objects live under the prefix", func(t *testing.T) {
		fake := newFakeS3()
		s := NewS3SinkWithClient(fake, "bucket", "/catalogs/")
		if err := s.Put(context.Background(), "a.katalog", strings.NewReader("abc"), 3); err != nil {
			t.Fatal(err)
		}
		if _, ok := fake.objects["bucket/catalogs/a.katalog"]; !ok {
			t.Errorf("objects = %v, want bucket/catalogs/a.katalog", fake.objects)
		}
	})

	t.Run("list ignores nested keys and other prefixes", func(t *testing.T) {
		fake := newFakeS3()
		fake.objects["bucket/catalogs/a.katalog"] = []byte("a")
		fake.objects["bucket/catalogs/b.katalog.age"] = []byte("bb")
		fake.objects["bucket/catalogs/old/c.katalog"] = []byte("c")
		fake.objects["bucket/other/d.katalog"] = []byte("d")
		fake.objects["elsewhere/catalogs/e.katalog"] = []byte("e")

		s := NewS3SinkWithClient(fake, "bucket", "catalogs")
		infos, err := s.List(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(infos) != 2 || infos[0].Name != "b.katalog.age" || infos[1].Name != "a.katalog" {
			t.Errorf("List() = %+v, want b then a", infos)
		}
		if infos[0].Size != 2 || !infos[0].Encrypted() {
			t.Errorf("info = %+v", infos[0])
		}
	})
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	if _, err := NewS3Sink(context.Background(), S3Options{Region: "eu-west-1"}); err == nil {
		t.Error("NewS3Sink() without bucket succeeded")
	}
}
