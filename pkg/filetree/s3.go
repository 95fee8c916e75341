package filetree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Tree.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config contains connection settings for an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible services
	Prefix          string // key prefix under which the tree lives
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Client builds an S3 client with static credentials.
func NewS3Client(cfg S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 access key id and secret access key are required")
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		UsePathStyle:     cfg.UsePathStyle,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts), nil
}

// S3Tree is a Tree stored in an S3 bucket. A folder is an empty object
// whose key ends in "/".
type S3Tree struct {
	client S3API
	bucket string
	prefix string
	index  Index
}

// NewS3Tree creates a tree over a bucket. A nil index gets a MemoryIndex.
func NewS3Tree(client S3API, bucket, prefix string, index Index) *S3Tree {
	if index == nil {
		index = NewMemoryIndex()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Tree{client: client, bucket: bucket, prefix: prefix, index: index}
}

func (t *S3Tree) key(p string) string {
	return t.prefix + strings.TrimPrefix(Clean(p), "/")
}

func (t *S3Tree) folderKey(p string) string {
	p = Clean(p)
	if p == "/" {
		return t.prefix
	}
	return t.key(p) + "/"
}

func (t *S3Tree) pathOf(key string) string {
	return Clean(strings.TrimSuffix(strings.TrimPrefix(key, t.prefix), "/"))
}

// GetByID implements Tree.
func (t *S3Tree) GetByID(ctx context.Context, id int64) (*Node, error) {
	p, err := t.index.Path(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Stat(ctx, p)
}

// Stat implements Tree.
func (t *S3Tree) Stat(ctx context.Context, p string) (*Node, error) {
	p = Clean(p)
	if p == "/" {
		return t.newNode(ctx, p, 0, true)
	}

	out, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(p)),
	})
	if err == nil {
		return t.newNode(ctx, p, aws.ToInt64(out.ContentLength), false)
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("head %s: %w", p, err)
	}

	isFolder, err := t.folderExists(ctx, p)
	if err != nil {
		return nil, err
	}
	if !isFolder {
		return nil, notFound(p)
	}
	return t.newNode(ctx, p, 0, true)
}

// folderExists reports whether a marker or any object lives under p.
func (t *S3Tree) folderExists(ctx context.Context, p string) (bool, error) {
	out, err := t.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(t.bucket),
		Prefix:  aws.String(t.folderKey(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", p, err)
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

func (t *S3Tree) newNode(ctx context.Context, p string, size int64, isFolder bool) (*Node, error) {
	id, err := t.index.ID(ctx, p)
	if err != nil {
		return nil, err
	}
	n := &Node{ID: id, Path: p, Name: path.Base(p), Size: size, IsFolder: isFolder}
	if p == "/" {
		n.Name = ""
	}
	return n, nil
}

// Exists implements Tree.
func (t *S3Tree) Exists(ctx context.Context, p string) (bool, error) {
	_, err := t.Stat(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *S3Tree) requireParent(ctx context.Context, p string) error {
	parent, err := t.Stat(ctx, path.Dir(Clean(p)))
	if err != nil {
		return err
	}
	if !parent.IsFolder {
		return fmt.Errorf("parent %s is not a folder", parent.Path)
	}
	return nil
}

// CreateFolder implements Tree.
func (t *S3Tree) CreateFolder(ctx context.Context, p string) (*Node, error) {
	p = Clean(p)
	if ok, err := t.Exists(ctx, p); err != nil {
		return nil, err
	} else if ok {
		return nil, exists(p)
	}
	if err := t.requireParent(ctx, p); err != nil {
		return nil, err
	}

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.folderKey(p)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %s: %w", p, err)
	}
	return t.newNode(ctx, p, 0, true)
}

// CreateFile implements Tree.
func (t *S3Tree) CreateFile(ctx context.Context, p string, content []byte) (*Node, error) {
	p = Clean(p)
	if ok, err := t.Exists(ctx, p); err != nil {
		return nil, err
	} else if ok {
		return nil, exists(p)
	}
	if err := t.requireParent(ctx, p); err != nil {
		return nil, err
	}

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(t.key(p)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", p, err)
	}
	// Report the size the bucket holds, not the size we sent.
	return t.Stat(ctx, p)
}

// ReadContent implements Tree.
func (t *S3Tree) ReadContent(ctx context.Context, n *Node) ([]byte, error) {
	if n.IsFolder {
		return nil, fmt.Errorf("read %s: is a folder", n.Path)
	}
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(n.Path)),
	})
	if isNotFound(err) {
		return nil, notFound(n.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", n.Path, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", n.Path, err)
	}
	return b, nil
}

// Delete implements Tree.
func (t *S3Tree) Delete(ctx context.Context, n *Node) error {
	if !n.IsFolder {
		if err := t.deleteKey(ctx, t.key(n.Path)); err != nil {
			return fmt.Errorf("delete %s: %w", n.Path, err)
		}
		return t.index.Forget(ctx, n.Path)
	}

	keys, err := t.keysUnder(ctx, t.folderKey(n.Path))
	if err != nil {
		return fmt.Errorf("delete %s: %w", n.Path, err)
	}
	// Children before their folder marker.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	for _, key := range keys {
		if err := t.deleteKey(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", n.Path, err)
		}
	}
	return t.index.Forget(ctx, n.Path)
}

func (t *S3Tree) deleteKey(ctx context.Context, key string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (t *S3Tree) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// ListChildren implements Tree.
func (t *S3Tree) ListChildren(ctx context.Context, folder *Node) ([]*Node, error) {
	prefix := t.folderKey(folder.Path)
	paginator := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(t.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var children []*Node
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folder.Path, err)
		}
		for _, cp := range page.CommonPrefixes {
			n, err := t.newNode(ctx, t.pathOf(aws.ToString(cp.Prefix)), 0, true)
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue
			}
			n, err := t.newNode(ctx, t.pathOf(key), aws.ToInt64(obj.Size), false)
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

var _ Tree = (*S3Tree)(nil)
