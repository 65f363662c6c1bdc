package domain

import "context"

type Storage interface {
	Upload(ctx context.Context, bucket, localPath, objectName string) error
	Download(ctx context.Context, bucket, objectName, destPath string) error
	List(ctx context.Context, bucket string) ([]string, error)
}

type ScheduleSource interface {
	FetchSchedules(ctx context.Context) ([]ScheduleEntry, error)
}
