package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"tinygit/pkg/core"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

const (
	objectsPrefix = "objects/"
	backupPrefix  = "backup/"
)

// Adapter 实现了 storage.Store 和 storage.BackupStore 接口
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string // 同一个 bucket 可以放多个仓库
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewAdapter 初始化 S3 客户端 (适配 AWS SDK v2 最新规范)
func NewAdapter(ctx context.Context, cfg Config, log zerolog.Logger) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	// 1. 加载基础配置 (仅包含 Region 和 Credentials)
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// 2. 创建 S3 客户端时，注入特定于 S3 的配置
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 如果指定了 Endpoint (比如 MinIO 的 localhost:9000)，则覆盖默认值
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须强制使用 Path Style
		o.UsePathStyle = true
	})

	// 3. 自动创建 Bucket
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &cfg.Bucket}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &cfg.Bucket}); err != nil {
			// 可能是并发创建或权限问题，继续运行，真正的读写会报错
			log.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("failed to ensure bucket exists")
		}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// transformKey 将 Hash 转换为 S3 Key (Sharding)
// Logic: "aabbcc..." -> "objects/aa/bbcc..."
func (s *Adapter) transformKey(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return s.prefix + objectsPrefix + h
	}
	return s.prefix + objectsPrefix + h[:2] + "/" + h[2:]
}

// keyToHash 是 transformKey 的逆操作
func (s *Adapter) keyToHash(key string) types.Hash {
	rest := strings.TrimPrefix(key, s.prefix+objectsPrefix)
	return types.Hash(strings.Replace(rest, "/", "", 1))
}

func (s *Adapter) backupKey(commit types.Hash, p string) (string, error) {
	clean := path.Clean(p)
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid backup path %q", p)
	}
	return s.prefix + backupPrefix + string(commit) + "/" + clean, nil
}

// Put 上传对象
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	// 1. 幂等性检查
	// 对于 S3，Head 请求比 Put 请求便宜且快。如果已存在，直接跳过。
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	contentType := "application/octet-stream"
	if obj.Type() == core.TypeCommit {
		contentType = "application/cbor"
	}
	return s.upload(ctx, s.transformKey(obj.ID()), obj.Bytes(), contentType)
}

func (s *Adapter) upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Get 下载对象
func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.download(ctx, s.transformKey(hash))
}

func (s *Adapter) download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// 将 AWS 的 NoSuchKey 错误映射为我们自己的 ErrNotFound
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return resp.Body, nil
}

// Has 检查对象是否存在
func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	return s.exists(ctx, s.transformKey(hash))
}

func (s *Adapter) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 兼容性：某些 S3 实现可能返回 generic 404 error string
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, err
}

// ExpandHash 利用 Prefix 查询扩展短哈希
func (s *Adapter) ExpandHash(ctx context.Context, shortHash types.HashPrefix) (types.Hash, error) {
	shortHash = shortHash.Normalize()
	if err := storage.CheckPrefix(shortHash); err != nil {
		return "", err
	}
	in := string(shortHash)

	// 构造前缀: "a8fd12" -> "objects/a8/fd12"
	prefix := s.prefix + objectsPrefix + in[:2] + "/" + in[2:]

	// MaxKeys=2：只需要知道是否有 0 个、1 个(唯一) 或 >1 个(歧义)
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return "", fmt.Errorf("s3 list failed: %w", err)
	}

	switch n := aws.ToInt32(resp.KeyCount); {
	case n == 0:
		return "", storage.ErrNotFound
	case n > 1:
		return "", storage.ErrAmbiguousHash
	}

	return s.keyToHash(aws.ToString(resp.Contents[0].Key)), nil
}

// Walk 分页列出 objects/ 下的所有 Key
func (s *Adapter) Walk(ctx context.Context, fn func(types.Hash) error) error {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + objectsPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			if err := fn(s.keyToHash(aws.ToString(obj.Key))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Adapter) PutFile(ctx context.Context, commit types.Hash, p string, data []byte) error {
	key, err := s.backupKey(commit, p)
	if err != nil {
		return err
	}
	exists, err := s.exists(ctx, key)
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}
	return s.upload(ctx, key, data, "application/octet-stream")
}

func (s *Adapter) GetFile(ctx context.Context, commit types.Hash, p string) (io.ReadCloser, error) {
	key, err := s.backupKey(commit, p)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, key)
}
