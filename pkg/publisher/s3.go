package publisher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// s3Pusher stores packages content-addressed in a bucket.
//
// The destination address format is:
//
//	ca+s3://<endpoint-host>/<bucket>[/<prefix>]?region=<region>
//
// Objects are keyed by the package's sharded content address, so the same
// package never occupies the bucket twice.
type s3Pusher struct {
	client *s3.Client
	bucket string
	prefix string
}

func newS3Pusher(ctx context.Context, u *url.URL) (*s3Pusher, error) {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || len(segments) == 0 || segments[0] == "" {
		return nil, serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("s3 destination {{addr|q}} must name an endpoint host and a bucket"),
			serum.WithDetail("addr", u.String()),
		)
	}
	bucket := segments[0]
	prefix := strings.Join(segments[1:], "/")
	region := u.Query().Get("region")
	endpoint := "https://" + u.Host

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					SigningRegion:     region,
				}, nil
			})),
	)
	if err != nil {
		return nil, bpapi.ErrorNetwork("loading s3 configuration", err)
	}
	client := s3.NewFromConfig(cfg)

	// make sure we can access the specified bucket
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err != nil {
		return nil, bpapi.ErrorNetwork("accessing bucket "+bucket, err)
	}

	return &s3Pusher{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (p *s3Pusher) key(id bpapi.PackageID) string {
	return path.Join(p.prefix, id.Subpath())
}

func (p *s3Pusher) hasPackage(ctx context.Context, id bpapi.PackageID) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(id)),
	})
	if err != nil {
		var responseError *awshttp.ResponseError
		if errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == http.StatusNotFound {
			return false, nil
		}
		return false, bpapi.ErrorNetwork("checking bucket for package", err)
	}
	return true, nil
}

func (p *s3Pusher) pushPackage(ctx context.Context, id bpapi.PackageID, archive []byte) error {
	key := p.key(id)
	uploader := manager.NewUploader(p.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(archive),
	})
	if err != nil {
		return bpapi.ErrorNetwork("uploading package to bucket", err)
	}
	return nil
}
