package toolcatalog

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RegisterAWSTools adds the aws.* tool domain: read-only listing
// operations plus one destructive example (object delete) that routes
// through confirmation.
func RegisterAWSTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "aws_s3_list_buckets",
		Domain:      "aws",
		Description: "List S3 buckets visible to the configured AWS credentials.",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:     awsS3ListBuckets,
	})

	c.Register(&Tool{
		Name:        "aws_s3_list_objects",
		Domain:      "aws",
		Description: "List objects in an S3 bucket under an optional prefix.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket": map[string]any{"type": "string"},
				"prefix": map[string]any{"type": "string"},
			},
			"required": []string{"bucket"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      awsS3ListObjects,
	})

	c.Register(&Tool{
		Name:                 "aws_s3_delete_object",
		Domain:               "aws",
		Description:          "Delete one object from an S3 bucket.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bucket": map[string]any{"type": "string"},
				"key":    map[string]any{"type": "string"},
			},
			"required": []string{"bucket", "key"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              awsS3DeleteObject,
	})
}

func loadS3Client(ctx *Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func awsS3ListBuckets(ctx *Context, args map[string]any) (string, error) {
	client, err := loadS3Client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(resp.Buckets))
	for _, b := range resp.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return successResult(map[string]any{"buckets": names}), nil
}

func awsS3ListObjects(ctx *Context, args map[string]any) (string, error) {
	bucket, _ := args["bucket"].(string)
	if bucket == "" {
		return "", fmt.Errorf("bucket is required")
	}
	prefix, _ := args["prefix"].(string)

	client, err := loadS3Client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return successResult(map[string]any{"bucket": bucket, "keys": keys}), nil
}

func awsS3DeleteObject(ctx *Context, args map[string]any) (string, error) {
	bucket, _ := args["bucket"].(string)
	key, _ := args["key"].(string)
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	client, err := loadS3Client(ctx)
	if err != nil {
		return "", err
	}
	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return "", err
	}
	return successResult(map[string]any{"bucket": bucket, "key": key, "deleted": true}), nil
}
