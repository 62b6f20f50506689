package dummy

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/entity"
	"github.com/veedubyou/vocal-separator/src/shared/lib/rabbitmq"
)

var _ cloudstorage.FileStore = &FileStore{}

type FileStore struct {
	lock  sync.Mutex
	files map[string][]byte
	Fail  bool
}

func (f *FileStore) GetFile(_ context.Context, fileURL string) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	contents, ok := f.files[fileURL]
	if !ok {
		return nil, errors.Newf("no file at %s", fileURL)
	}

	return contents, nil
}

func (f *FileStore) WriteFile(_ context.Context, fileURL string, fileContent []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.Fail {
		return errors.New("dummy file store refused the write")
	}

	if f.files == nil {
		f.files = map[string][]byte{}
	}

	f.files[fileURL] = fileContent
	return nil
}

var _ rabbitmq.Publisher = &Publisher{}

type Publisher struct {
	lock     sync.Mutex
	messages []amqp091.Publishing
	Fail     bool
}

func (p *Publisher) Publish(_ context.Context, msg amqp091.Publishing) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.Fail {
		return errors.Wrap(amqp091.ErrClosed, "dummy publisher is closed")
	}

	p.messages = append(p.messages, msg)
	return nil
}

func (p *Publisher) Messages() []amqp091.Publishing {
	p.lock.Lock()
	defer p.lock.Unlock()

	return append([]amqp091.Publishing{}, p.messages...)
}
