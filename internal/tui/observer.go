package tui

import "github.com/mmcdole/marquee/internal/domain"

// ChannelObserver adapts domain.SessionObserver to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan domain.SessionSnapshot
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan domain.SessionSnapshot) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnSessionChange sends the snapshot without blocking. When the channel is
// full the oldest pending snapshot is dropped: only the latest one matters.
func (o *ChannelObserver) OnSessionChange(snap domain.SessionSnapshot) {
	for {
		select {
		case o.ch <- snap:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}
