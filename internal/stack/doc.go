// Package stack implements the toast stack: one foreground toast plus a history of
// demoted toasts, shown folded or unfolded.
//
// Every mutation (Show, Update, Hide, Destroy, HideAll, Toggle, SwitchUnfolded,
// SetUnfolded) is appended to a single ordered queue and applied at the next frame,
// which a Scheduler decides. Reads only observe committed frames, so a Show followed
// by an Update of the same id always applies in that order.
//
// Operations never fail. Unknown ids, repeated hides and updates after destruction
// are ignored. Close callbacks and observers run after the lock is released; a panic
// in one of them is recovered, logged and counted.
package stack
