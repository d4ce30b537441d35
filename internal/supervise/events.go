package supervise

// Events receives lifecycle notifications, e.g. for metrics. Optional.
type Events interface {
	Restarted()
	Rendered(ok bool)
	ChildUp(up bool)
}

type noopEvents struct{}

func (noopEvents) Restarted()    {}
func (noopEvents) Rendered(bool) {}
func (noopEvents) ChildUp(bool)  {}
