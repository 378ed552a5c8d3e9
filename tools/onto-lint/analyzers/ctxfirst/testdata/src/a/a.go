package a

import "context"

type Service struct{}

func (s *Service) Merge(id string, ctx context.Context) error { // want "Merge takes context.Context as parameter 2"
	return nil
}

func Apply(kbID, actor string, ctx context.Context) {} // want "Apply takes context.Context as parameter 3"

func (s *Service) Get(ctx context.Context, id string) error {
	return nil
}

func unexported(id string, ctx context.Context) {}

func NoContext(id string) {}
