package source

import (
	"fmt"

	"github.com/ivlev/slidecast/internal/director"
)

// KeyframeProvider walks the keyframe markers of one slide by position.
type KeyframeProvider struct {
	cursor
	slide director.Slide
}

func NewKeyframeProvider(slide director.Slide, policy Policy) (*KeyframeProvider, error) {
	if err := slide.Validate(); err != nil {
		return nil, err
	}
	ordered := slide.Ordered()
	if len(ordered) == 0 {
		return nil, fmt.Errorf("slide %d has no keyframes", slide.ID)
	}
	ids := make([]int64, len(ordered))
	for i, kf := range ordered {
		ids[i] = kf.ID
	}
	return &KeyframeProvider{cursor: cursor{ids: ids, policy: policy}, slide: slide}, nil
}

// SlideID is the owner of the keyframe sequence.
func (p *KeyframeProvider) SlideID() int64 { return p.slide.ID }

// Keyframe returns the marker with the given id.
func (p *KeyframeProvider) Keyframe(id int64) (director.Keyframe, bool) {
	for _, kf := range p.slide.Keyframes {
		if kf.ID == id {
			return kf, true
		}
	}
	return director.Keyframe{}, false
}
