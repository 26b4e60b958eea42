package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options configures AWS config loading. Endpoint and static
// credentials are only set for local development (e.g. LocalStack).
type Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	Secret    string
}

// LoadConfig loads an AWS SDK config honoring local overrides.
func LoadConfig(ctx context.Context, opts Options) (sdkaws.Config, error) {
	cfgOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" || opts.Secret != "" {
		cfgOpts = append(cfgOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.Secret, ""),
		))
	}
	if opts.Endpoint != "" {
		resolver := sdkaws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
			return sdkaws.Endpoint{
				URL:               opts.Endpoint,
				SigningRegion:     opts.Region,
				HostnameImmutable: true,
			}, nil
		})
		cfgOpts = append(cfgOpts, awscfg.WithEndpointResolverWithOptions(resolver))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}
