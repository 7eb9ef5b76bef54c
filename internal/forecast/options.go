package forecast

// Options tunes the models. Zero sizes are filled from DefaultOptions by New;
// Seed is used as given.
type Options struct {
	Window     int    `yaml:"window" default:"20" validate:"gte=1"`
	Trees      int    `yaml:"trees" default:"100" validate:"gte=1"`
	MaxDepth   int    `yaml:"max_depth" default:"6" validate:"gte=1"`
	Seed       uint64 `yaml:"seed" default:"42"`
	MaxHorizon int    `yaml:"max_horizon" default:"365" validate:"gte=1"`
}

// DefaultOptions returns the stock model parameters.
func DefaultOptions() Options {
	return Options{
		Window:     20,
		Trees:      100,
		MaxDepth:   6,
		Seed:       42,
		MaxHorizon: 365,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Window == 0 {
		o.Window = d.Window
	}
	if o.Trees == 0 {
		o.Trees = d.Trees
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.MaxHorizon == 0 {
		o.MaxHorizon = d.MaxHorizon
	}
	return o
}

func (o Options) validate() error {
	if err := positive("window", o.Window); err != nil {
		return err
	}
	if err := positive("trees", o.Trees); err != nil {
		return err
	}
	if err := positive("max_depth", o.MaxDepth); err != nil {
		return err
	}
	return positive("max_horizon", o.MaxHorizon)
}
