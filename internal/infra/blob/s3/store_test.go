package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"courtcore/internal/blob/core"
)

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

// fakeAPI is a tiny in-memory bucket. pageSize forces paginated listings.
type fakeAPI struct {
	objects  map[string]fakeObject
	pageSize int
	failList error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{objects: make(map[string]fakeObject), pageSize: 1} }

var modified = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(`"etag-` + aws.ToString(in.Key) + `"`),
		Metadata:      obj.meta,
		LastModified:  aws.Time(modified),
	}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, contentType: aws.ToString(in.ContentType), meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.body)),
		ContentLength: aws.Int64(int64(len(obj.body))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(modified),
	}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+f.pageSize, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k].body))), LastModified: aws.Time(modified)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func TestStoreBasicFlow(t *testing.T) {
	store := newStore(newFakeAPI(), "audits")
	ctx := context.Background()
	info, err := store.Put(ctx, "audits/a.json", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"errors": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "audits/a.json" || info.Size != 5 || info.ETag != "etag-audits/a.json" || info.Metadata["errors"] != "1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "audits/a.json", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "audits/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
	if ok, err := store.Delete(ctx, "audits/a.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "audits/a.json"); err != nil || ok {
		t.Fatalf("expected second delete false, got %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "audits/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "audits/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("expected s3 driver")
	}
}

func TestStoreListPaginatesAndSorts(t *testing.T) {
	fake := newFakeAPI()
	store := newStore(fake, "b")
	ctx := context.Background()
	for _, key := range []string{"audits/1.json", "audits/3.json", "audits/2.json", "other/x"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "audits/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Key != "audits/1.json" || list[2].Key != "audits/3.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	fake.failList = errors.New("denied")
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list error")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.bucket != "bkt" {
		t.Fatalf("unexpected bucket %s", s.bucket)
	}
}
