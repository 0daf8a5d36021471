package tracker

// Absent marks a frame in which a meta-face does not appear.
const Absent = -1

// NoSpeaker is the id reported when a window has no dominant speaker.
const NoSpeaker = -1

// MetaFace is one physical face followed across a window. Faces holds, per
// buffered frame, the face index it was seen at, or Absent.
type MetaFace struct {
	ID    int   `json:"id"`
	Faces []int `json:"faces"`
	Hits  int   `json:"hits"`
}

// FirstFrame returns the first buffered frame the meta-face appears in.
func (m MetaFace) FirstFrame() (int, bool) {
	for pos, idx := range m.Faces {
		if idx != Absent {
			return pos, true
		}
	}
	return 0, false
}

// metaFaceArena owns the meta-faces of one window evaluation. Ids are arena
// indices and are never reused within the window.
type metaFaceArena struct {
	windowSize int
	faces      []MetaFace
}

func newMetaFaceArena(windowSize int) *metaFaceArena {
	return &metaFaceArena{windowSize: windowSize}
}

func (a *metaFaceArena) mint(pos, faceIdx int) int {
	slots := make([]int, a.windowSize)
	for i := range slots {
		slots[i] = Absent
	}
	slots[pos] = faceIdx

	id := len(a.faces)
	a.faces = append(a.faces, MetaFace{ID: id, Faces: slots})
	return id
}

func (a *metaFaceArena) claim(id, pos, faceIdx int) {
	a.faces[id].Faces[pos] = faceIdx
}

func (a *metaFaceArena) hit(id int) {
	a.faces[id].Hits++
}

// dominant returns the meta-face with the most hits. Ties go to the lowest
// id; no hits at all means no dominant speaker.
func (a *metaFaceArena) dominant() (MetaFace, bool) {
	best := NoSpeaker
	maxHits := 0
	for _, mf := range a.faces {
		if mf.Hits > maxHits {
			best = mf.ID
			maxHits = mf.Hits
		}
	}
	if best == NoSpeaker {
		return MetaFace{}, false
	}
	return a.faces[best], true
}

func (a *metaFaceArena) snapshot() []MetaFace {
	out := make([]MetaFace, len(a.faces))
	for i, mf := range a.faces {
		mf.Faces = append([]int(nil), mf.Faces...)
		out[i] = mf
	}
	return out
}
