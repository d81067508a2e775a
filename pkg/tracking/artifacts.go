package tracking

// MLflow's REST API does not accept artifact uploads; text artifacts go
// straight to the S3-compatible artifact store the tracking server points
// runs at.

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ArtifactStore struct {
	client *minio.Client
}

/*
NewArtifactStore connects to the artifact bucket endpoint.  An empty
endpoint disables artifact logging without disabling run tracking.
*/
func NewArtifactStore(endpoint, accessKey, secretKey string, useSSL bool) (*ArtifactStore, error) {
	if endpoint == "" {
		return nil, nil
	}

	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to artifact store: %w", err)
	}

	return &ArtifactStore{client: client}, nil
}

/*
PutText writes one text artifact under a run's artifact_uri, which MLflow
hands out as s3://bucket/prefix.
*/
func (store *ArtifactStore) PutText(ctx context.Context, artifactURI, name, text string) error {
	bucket, prefix, err := splitArtifactURI(artifactURI)
	if err != nil {
		return err
	}

	key := prefix + "/" + name

	_, err = store.client.PutObject(
		ctx, bucket, key,
		strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain"},
	)

	return err
}

func splitArtifactURI(artifactURI string) (bucket string, prefix string, err error) {
	parsed, err := url.Parse(artifactURI)
	if err != nil {
		return "", "", fmt.Errorf("invalid artifact uri %q: %w", artifactURI, err)
	}

	if parsed.Scheme != "s3" || parsed.Host == "" {
		return "", "", fmt.Errorf("unsupported artifact uri %q: want s3://bucket/prefix", artifactURI)
	}

	return parsed.Host, strings.Trim(parsed.Path, "/"), nil
}
