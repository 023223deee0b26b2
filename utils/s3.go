package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var s3Client *s3.Client

// InitS3 sets up the client used for offloading captured meal photos.
// Skipped entirely when no bucket is configured; entries then keep their
// data-URI images.
func InitS3() {
	if os.Getenv("S3_BUCKET") == "" {
		log.Println("S3_BUCKET not set, meal images will be stored inline")
		return
	}

	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = os.Getenv("AWS_REGION") // fallback
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(s3Region))
	if err != nil {
		log.Fatalf("Unable to load AWS config for S3: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
}

// S3Enabled reports whether image offloading is configured.
func S3Enabled() bool {
	return s3Client != nil
}

// parseDataURI splits a "data:<mime>;base64,<payload>" string into its
// content type and decoded payload.
func parseDataURI(uri string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URI")
	}
	mediaType, ok := strings.CutPrefix(meta, "data:")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URI")
	}
	contentType := strings.SplitN(mediaType, ";", 2)[0]
	if contentType == "" {
		return "", nil, fmt.Errorf("invalid data URI")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %v", err)
	}
	return contentType, data, nil
}

func extensionForType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		return "." + parts[1]
	}
	return ""
}

// UploadBase64ImageToS3 stores a "data:<mime>;base64,<data>" meal photo and
// returns its public URL.
func UploadBase64ImageToS3(base64Data, filenamePrefix string) (string, error) {
	if s3Client == nil {
		return "", fmt.Errorf("S3 is not configured")
	}

	contentType, imageData, err := parseDataURI(base64Data)
	if err != nil {
		return "", err
	}
	ext := extensionForType(contentType)

	key := fmt.Sprintf("meal-photos/%s-%d%s",
		filenamePrefix,
		time.Now().UnixNano(),
		ext,
	)

	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("S3_BUCKET")),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	cfURL := os.Getenv("CLOUDFRONT_URL")
	return fmt.Sprintf("%s/%s", cfURL, key), nil
}
