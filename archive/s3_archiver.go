package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/alitto/pond"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/schollz/progressbar/v3"
)

// Uploads a finished run's local results tree into an S3 bucket so results survive the
// operator's workstation. The bucket must already exist; this tool never creates or
// destroys buckets.
type Archiver interface {
	// Verify the bucket is reachable before the upload starts.
	SetUp() error

	// Upload every file under dir, keyed as <prefix>/<path relative to dir>.
	UploadDir(dir string) error
}

type s3Archiver struct {
	input *S3ArchiverInput
	s3    *s3.Client
}

type S3ArchiverInput struct {
	AwsConfig         aws.Config
	Bucket            string
	Prefix            string
	UploadConcurrency int
}

func NewS3Archiver(input *S3ArchiverInput) Archiver {
	if input.UploadConcurrency < 1 {
		input.UploadConcurrency = 8
	}
	return &s3Archiver{
		input: input,
		s3:    s3.NewFromConfig(input.AwsConfig),
	}
}

func (a *s3Archiver) SetUp() error {
	_, err := a.s3.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: &a.input.Bucket,
	})
	if err != nil {
		return fmt.Errorf("archive bucket %s is not reachable: %w", a.input.Bucket, err)
	}
	return nil
}

func (a *s3Archiver) UploadDir(dir string) error {
	files, err := collectFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("nothing to archive", slog.String("dir", dir))
		return nil
	}

	slog.Info("archiving results", slog.String("dir", dir), slog.String("bucket", a.input.Bucket), slog.Int("files", len(files)))
	uploader := manager.NewUploader(a.s3, func(u *manager.Uploader) {
		u.PartSize = 1024 * 1024 * 10
	})
	errChan := make(chan error, len(files))
	pool := pond.New(a.input.UploadConcurrency, 0, pond.MinWorkers(a.input.UploadConcurrency))
	p := progressbar.Default(int64(len(files)), "Uploading results:")
	for _, file := range files {
		pool.Submit(func() {
			defer p.Add(1)

			f, err := os.Open(filepath.Join(dir, file))
			if err != nil {
				slog.Error("failed to open result file", slog.String("file", file), slog.String("error", err.Error()))
				errChan <- err
				return
			}
			defer f.Close()

			key := keyFor(a.input.Prefix, file)
			_, err = uploader.Upload(context.Background(), &s3.PutObjectInput{
				Bucket: &a.input.Bucket,
				Key:    &key,
				Body:   f,
			})
			if err != nil {
				slog.Error("failed to upload result file", slog.String("key", key), slog.String("error", err.Error()))
				errChan <- err
				return
			}
		})
	}
	pool.StopAndWait()
	p.Finish()

	select {
	case err := <-errChan:
		return fmt.Errorf("some result files failed to upload: %w", err)
	default:
		slog.Info("done archiving", slog.String("bucket", a.input.Bucket))
		return nil
	}
}

// All regular files under dir, as slash-separated paths relative to dir.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func keyFor(prefix, file string) string {
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}
