// Package memereport writes point-in-time JSON reports to S3, or locally when
// running dry, and reads the latest one back.
package memereport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/rs/zerolog"
)

type GenerateCallback func(ctx context.Context) (interface{}, error)

type Handler struct {
	Now func() time.Time
	Out io.Writer

	service memecli.Service
	logger  zerolog.Logger
	s3      s3iface.S3API

	reportName string

	generate GenerateCallback
}

func ReportKey(serviceName, reportName string, timestamp time.Time) string {
	return fmt.Sprintf("%v/%v/%v/%v/%v", serviceName, reportName, timestamp.Format("2006-01-02"), timestamp.Format("15"), timestamp.Format("2006-01-02-15:04:05.json"))
}

func NewHandler(
	service memecli.Service,
	reportName string,
	api s3iface.S3API,
	generate GenerateCallback,
) *Handler {
	return &Handler{
		Now:        time.Now,
		Out:        os.Stdout,
		service:    service,
		logger:     memecli.Logger(service),
		s3:         api,
		reportName: reportName,
		generate:   generate,
	}
}

func (h *Handler) Generate(ctx context.Context, _ json.RawMessage) error {
	ctx = h.logger.WithContext(ctx)
	h.logger.Info().Msg("generating report")
	report, err := h.generate(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to generate report")
		return err
	}
	reportBytes, err := json.Marshal(report)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal report")
		return err
	}

	now := h.Now().UTC()
	if memecli.CommonOpts.Dry {
		return h.saveLocally(report, reportBytes, now)
	}

	key := ReportKey(h.service.Name, h.reportName, now)
	h.logger.Info().Str("bucket", ReportOpts.Bucket).Str("filename", key).Int("size", len(reportBytes)).Msg("saving report to s3")
	_, err = h.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ReportOpts.Bucket),
		Body:        bytes.NewReader(reportBytes),
		Key:         aws.String(key),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save report %v: %w", key, err)
	}
	return nil
}

func (h *Handler) saveLocally(report interface{}, reportBytes []byte, now time.Time) error {
	if ReportOpts.OutFile == "" {
		enc := json.NewEncoder(h.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if err := os.MkdirAll(path.Dir(ReportOpts.OutFile), 0755); err != nil {
		return err
	}
	h.logger.Info().Str("filename", ReportOpts.OutFile).Int("size", len(reportBytes)).Time("at", now).Msg("dry run, saving report locally")
	return os.WriteFile(ReportOpts.OutFile, reportBytes, 0644)
}

// GetRawAsOf returns the newest report written on the day of timestamp,
// walking back up to five days.
func GetRawAsOf(ctx context.Context, s3Api s3iface.S3API, bucket, serviceName, reportName string, timestamp time.Time) ([]byte, string, error) {
	for count := 0; ; count++ {
		prefix := fmt.Sprintf("%v/%v/%v", serviceName, reportName, timestamp.Format("2006-01-02"))
		listOutput, err := s3Api.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			MaxKeys: aws.Int64(1000),
			Prefix:  aws.String(prefix),
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to read most recent %v report: failed to list objects: %w", reportName, err)
		}

		if len(listOutput.Contents) == 0 {
			if count >= 5 {
				return nil, "", fmt.Errorf("failed to find latest %v report after 5 days: %v", reportName, timestamp)
			}
			yesterday := timestamp.AddDate(0, 0, -1)
			timestamp = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, time.UTC)
			continue
		}

		sort.Slice(listOutput.Contents, func(i, j int) bool {
			return aws.StringValue(listOutput.Contents[i].Key) > aws.StringValue(listOutput.Contents[j].Key)
		})
		firstKey := listOutput.Contents[0].Key

		output, err := s3Api.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    firstKey,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to read most recent file in %v: failed to get object, %v: %w", prefix, aws.StringValue(firstKey), err)
		}
		defer output.Body.Close()
		data, err := io.ReadAll(output.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read most recent file in %v: failed to read s3 response, %v: %w", prefix, aws.StringValue(firstKey), err)
		}
		return data, aws.StringValue(firstKey), nil
	}
}

func GetLatest(ctx context.Context, s3Api s3iface.S3API, bucket, serviceName, reportName string, obj any) (string, error) {
	data, filename, err := GetRawAsOf(ctx, s3Api, bucket, serviceName, reportName, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return "", fmt.Errorf("failed to unmarshal latest report: %w", err)
	}
	return filename, nil
}

func (h *Handler) Start(ctx context.Context) error {
	if ReportOpts.GetLatest {
		reportBytes, _, err := GetRawAsOf(ctx, h.s3, ReportOpts.Bucket, h.service.Name, h.reportName, h.Now().UTC())
		if err != nil {
			return err
		}
		if ReportOpts.OutFile == "" {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, reportBytes, "", "  "); err != nil {
				return err
			}
			_, err := h.Out.Write(pretty.Bytes())
			return err
		}
		if err := os.MkdirAll(path.Dir(ReportOpts.OutFile), 0755); err != nil {
			return err
		}
		return os.WriteFile(ReportOpts.OutFile, reportBytes, 0644)
	}

	switch {
	case memecli.CommonOpts.Console:
		return h.Generate(ctx, nil)

	default:
		lambda.Start(h.Generate)
	}
	return nil
}
