package blob

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// S3Opener streams objects out of S3. The response body is returned as-is,
// so the caller reads the object without buffering it whole.
type S3Opener struct {
	client s3iface.S3API
}

// NewS3Opener wraps an existing S3 client.
func NewS3Opener(client s3iface.S3API) *S3Opener {
	return &S3Opener{client: client}
}

// Open implements Opener.
func (o *S3Opener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := o.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
				return nil, errors.Wrapf(ErrNotFound, "s3://%s/%s", bucket, key)
			}
		}
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", bucket, key)
	}
	return out.Body, nil
}
