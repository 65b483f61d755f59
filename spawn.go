package resignal

// Spawn creates a signal and invokes it once with KeepAlive, so the effect
// context, and therefore the workflow's cancellation scope, persists for
// the life of the asynchronous work instead of being disposed after the first
// synchronous return. The returned signal can be cancelled, inspected, or
// subscribed to.
//
//	job := resignal.Spawn(resignal.Effect(func(ec *resignal.Context) (resignal.Result[int], error) {
//	    worker := resignal.Fork(ec, resignal.Future(compute(ec.StdContext())))
//	    return resignal.Await(resignal.Watch(ec, worker)), nil
//	}))
//	defer job.Cancel()
func Spawn[T any](in Input[T], opts ...Option[T]) *Signal[T] {
	s := New[T](opts...)
	s.invoke(in, true)
	return s
}
