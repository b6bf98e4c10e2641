// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"ytwatch/internal/model"
)

// Sentinel errors returned by Store implementations. Callers match with
// errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// VideoFilter narrows ListVideos and CountVideos results. Zero values
// mean "no constraint"; Limit <= 0 means no limit.
type VideoFilter struct {
	Status           model.VideoStatus
	ChannelYouTubeID string
	IsShort          *bool
	Query            string
	Limit            int
	Offset           int
}

// Store is the set of data operations available both on the base
// connection and inside a transaction.
type Store interface {
	CreateChannel(ctx context.Context, ch *model.Channel) error
	GetChannel(ctx context.Context, id string) (*model.Channel, error)
	GetChannelByYouTubeID(ctx context.Context, youtubeID string) (*model.Channel, error)
	ListChannels(ctx context.Context) ([]model.Channel, error)
	UpdateChannel(ctx context.Context, ch *model.Channel) error
	DeleteChannel(ctx context.Context, id string) error

	CreateVideo(ctx context.Context, v *model.Video) error
	GetVideo(ctx context.Context, id string) (*model.Video, error)
	GetVideoByYouTubeID(ctx context.Context, youtubeID string) (*model.Video, error)
	VideoExists(ctx context.Context, youtubeID string) (bool, error)
	ListVideos(ctx context.Context, f VideoFilter) ([]model.Video, error)
	CountVideos(ctx context.Context, f VideoFilter) (int, error)
	SetVideoStatus(ctx context.Context, id string, status model.VideoStatus) error
	SetVideoShort(ctx context.Context, id string, isShort bool) error
	DeleteVideo(ctx context.Context, id string) error
	PurgeDiscarded(ctx context.Context) (int64, error)

	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, s *model.Settings) error
}

// Storage is the interface for all persistence operations. InTx runs fn
// against a transactional Store; everything fn writes is committed
// together when fn returns nil and rolled back when it returns an error.
type Storage interface {
	Store

	InTx(ctx context.Context, fn func(Store) error) error
	BackupTo(ctx context.Context, path string) error
	Close() error
}
