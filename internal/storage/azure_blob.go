package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/straye-as/labelling-app/internal/domain"
	"go.uber.org/zap"
)

// AzureOptions selects how the blob client authenticates
type AzureOptions struct {
	ConnectionString string
	AccountURL       string
	Container        string
}

// AzureBlobStorage implements Storage on one Azure Blob Storage container
type AzureBlobStorage struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobStorage connects to the storage account. DefaultAzureCredential
// is tried first against the account URL (given, or derived from the
// connection string); when it cannot list service properties the connection
// string is used instead. The container is created when missing.
func NewAzureBlobStorage(ctx context.Context, opts AzureOptions, logger *zap.Logger) (*AzureBlobStorage, error) {
	if opts.Container == "" {
		return nil, fmt.Errorf("container name required for azure storage")
	}

	accountURL := opts.AccountURL
	if accountURL == "" {
		accountURL = AccountURLFromConnectionString(opts.ConnectionString)
	}

	var client *azblob.Client
	if accountURL != "" {
		c, err := newCredentialClient(ctx, accountURL)
		if err == nil {
			client = c
			logger.Info("Using DefaultAzureCredential for blob storage", zap.String("account_url", accountURL))
		} else {
			logger.Warn("DefaultAzureCredential failed, falling back to connection string", zap.Error(err))
		}
	}

	if client == nil {
		if opts.ConnectionString == "" {
			return nil, fmt.Errorf("connection string required for azure storage")
		}
		c, err := azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
		client = c
	}

	_, err := client.CreateContainer(ctx, opts.Container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger.Info("Azure Blob Storage initialized", zap.String("container", opts.Container))

	return &AzureBlobStorage{
		client:        client,
		containerName: opts.Container,
		logger:        logger,
	}, nil
}

func newCredentialClient(ctx context.Context, accountURL string) (*azblob.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := client.ServiceClient().GetProperties(verifyCtx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// AccountURLFromConnectionString derives https://{account}.blob.{suffix}/
// from the AccountName and EndpointSuffix parts of a connection string.
// BlobEndpoint wins when present.
func AccountURLFromConnectionString(connStr string) string {
	parts := map[string]string{}
	for _, segment := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		parts[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if endpoint := parts["blobendpoint"]; endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		return endpoint
	}

	account := parts["accountname"]
	if account == "" {
		return ""
	}
	suffix := parts["endpointsuffix"]
	if suffix == "" {
		suffix = "core.windows.net"
	}
	return fmt.Sprintf("https://%s.blob.%s/", account, suffix)
}

// Put uploads data to name, overwriting any existing blob
func (s *AzureBlobStorage) Put(ctx context.Context, name, contentType string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.containerName, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	s.logger.Debug("Blob uploaded",
		zap.String("blob_name", name),
		zap.String("container", s.containerName),
		zap.Int("size", len(data)),
	)
	return nil
}

// Get downloads the blob called name
func (s *AzureBlobStorage) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.containerName, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Delete removes the blob called name
func (s *AzureBlobStorage) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			s.logger.Debug("Blob already deleted or not found", zap.String("blob_name", name))
			return nil
		}
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	s.logger.Info("Blob deleted",
		zap.String("blob_name", name),
		zap.String("container", s.containerName),
	)
	return nil
}

// List returns every blob whose name starts with prefix
func (s *AzureBlobStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var opts *azblob.ListBlobsFlatOptions
	if prefix != "" {
		opts = &azblob.ListBlobsFlatOptions{Prefix: &prefix}
	}

	var objects []ObjectInfo
	pager := s.client.NewListBlobsFlatPager(s.containerName, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := ObjectInfo{Name: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					info.LastModified = *item.Properties.LastModified
				}
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// Ping checks that the container is reachable
func (s *AzureBlobStorage) Ping(ctx context.Context) error {
	_, err := s.client.ServiceClient().NewContainerClient(s.containerName).GetProperties(ctx, nil)
	if err != nil {
		return fmt.Errorf("container %s unreachable: %w", s.containerName, err)
	}
	return nil
}
