package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/sdko-org/uptime-dashboard/internal/logging"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

type memObjects struct {
	objects map[string][]byte
	deletes int
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memObjects) Put(_ context.Context, key string, content []byte, _ string) error {
	m.objects[key] = content
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.deletes++
	delete(m.objects, key)
	return nil
}

type memIndex struct {
	entries map[string]models.ExportArchive
}

func (m *memIndex) Find(_ context.Context, key string) (*models.ExportArchive, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memIndex) Save(_ context.Context, e *models.ExportArchive) error {
	m.entries[e.Key] = *e
	return nil
}

func (m *memIndex) Touch(_ context.Context, key string, at time.Time) error {
	e := m.entries[key]
	e.LastAccess = at
	m.entries[key] = e
	return nil
}

func (m *memIndex) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memIndex) Expired(_ context.Context, now time.Time) ([]models.ExportArchive, error) {
	var out []models.ExportArchive
	for _, e := range m.entries {
		if e.ExpiresAt.Before(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestArchive(t *testing.T) {
	Convey("Given an export archive", t, func() {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		objects := &memObjects{objects: map[string][]byte{}}
		index := &memIndex{entries: map[string]models.ExportArchive{}}
		a := NewArchive(logging.Discard(), objects, index, time.Hour, nil)
		a.now = func() time.Time { return now }
		ctx := context.Background()
		past := models.TimeRange{Start: now.Add(-72 * time.Hour), End: now.Add(-48 * time.Hour)}

		Convey("Then only closed ranges are archivable", func() {
			So(a.Archivable(past), ShouldBeTrue)
			So(a.Archivable(models.TimeRange{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}), ShouldBeFalse)
		})

		Convey("When nothing is archived", func() {
			_, err := a.Get(ctx, "ep-1", past)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When an export is archived", func() {
			So(a.Put(ctx, "ep-1", past, []byte("a,b\n1,2\n")), ShouldBeNil)

			Convey("Then it is served back and its access time updated", func() {
				now = now.Add(10 * time.Minute)
				data, err := a.Get(ctx, "ep-1", past)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "a,b\n1,2\n")
				e := index.entries[ArchiveKey("ep-1", past)]
				So(e.LastAccess.Equal(now), ShouldBeTrue)
				So(e.SizeBytes, ShouldEqual, int64(8))
			})

			Convey("Then after the TTL it is gone", func() {
				now = now.Add(2 * time.Hour)
				_, err := a.Get(ctx, "ep-1", past)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(index.entries, ShouldBeEmpty)
				So(objects.objects, ShouldBeEmpty)
			})

			Convey("Then a missing object drops the dangling entry", func() {
				delete(objects.objects, ArchiveKey("ep-1", past))
				_, err := a.Get(ctx, "ep-1", past)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(index.entries, ShouldBeEmpty)
			})
		})
	})
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
	deleted []string
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	s3manageriface.UploaderAPI
	inputs []*s3manager.UploadInput
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.inputs = append(f.inputs, in)
	return &s3manager.UploadOutput{}, nil
}

func TestS3Store(t *testing.T) {
	Convey("Given an S3 store", t, func() {
		api := &fakeS3{objects: map[string]string{"exports/ep-1/1-2.csv": "x,y\n"}}
		up := &fakeUploader{}
		store := NewS3StoreWithAPI(api, up, "exports-bucket")
		ctx := context.Background()

		Convey("When the object exists", func() {
			data, err := store.Get(ctx, "exports/ep-1/1-2.csv")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "x,y\n")
		})

		Convey("When the object is missing", func() {
			_, err := store.Get(ctx, "exports/none.csv")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When uploading and deleting", func() {
			So(store.Put(ctx, "k.csv", []byte("data"), "text/csv"), ShouldBeNil)
			So(store.Delete(ctx, "k.csv"), ShouldBeNil)

			So(aws.StringValue(up.inputs[0].Bucket), ShouldEqual, "exports-bucket")
			So(aws.StringValue(up.inputs[0].ContentType), ShouldEqual, "text/csv")
			So(api.deleted, ShouldResemble, []string{"k.csv"})
		})
	})
}
