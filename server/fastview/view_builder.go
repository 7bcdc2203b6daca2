package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

var (
	ErrNoViews = errors.New("no views to build")
	ErrNoModel = errors.New("no model to build views from")
)

// ViewBuilderFunc builds one view from a stream of view-models. The view must stop
// when done is closed.
type ViewBuilderFunc[ViewModel any] func(done <-chan struct{}, models <-chan ViewModel) ViewComponent

// ViewBuilder wires several views to a single source of data-models. Each data-model is
// converted once, and the resulting view-model is fanned out to every view.
type ViewBuilder[DataModel any, ViewModel any] struct {
	done    <-chan struct{}
	source  <-chan DataModel
	convert func(DataModel) ViewModel
	views   []ViewBuilderFunc[ViewModel]
}

func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithContext stops the conversion and every built view once ctx is done.
// Without it, they run until the source closes.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(ctx context.Context) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	source <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = source
	vb.convert = convert
	return vb
}

// WithView appends a view. Build returns views in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(build ViewBuilderFunc[ViewModel]) *ViewBuilder[DataModel, ViewModel] {
	vb.views = append(vb.views, build)
	return vb
}

// Build starts the conversion and returns the views. Every view receives every
// view-model, in order, so the slowest view paces the others.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() ([]ViewComponent, error) {
	if len(vb.views) == 0 {
		return nil, ErrNoViews
	}
	if vb.source == nil || vb.convert == nil {
		return nil, ErrNoModel
	}

	models := channerics.Broadcast(
		vb.done,
		channerics.Convert(vb.done, vb.source, vb.convert),
		len(vb.views))

	built := make([]ViewComponent, len(vb.views))
	for i, build := range vb.views {
		built[i] = build(vb.done, models[i])
	}
	return built, nil
}
