package dot11

import "strings"

// IE is one information element of a management frame
type IE struct {
	ID   uint8
	Data []byte
}

// ieOffset returns where the information elements start, or -1 when the
// frame carries none
func (f Frame) ieOffset() int {
	if f.Type() != TypeMgmt {
		return -1
	}
	switch f.Subtype() {
	case SubtypeBeacon, SubtypeProbeResp:
		return headerLen + fixedBeaconLen
	case SubtypeAssocReq:
		return headerLen + fixedAssocReqLen
	}
	return headerLen
}

// Elements calls fn for each information element until fn returns false.
// Iteration stops at the first element that runs past the end of the frame.
func (f Frame) Elements(fn func(ie IE) bool) {
	pos := f.ieOffset()
	if pos < 0 {
		return
	}
	for pos+2 <= len(f) {
		id, n := f[pos], int(f[pos+1])
		if pos+2+n > len(f) {
			return
		}
		if !fn(IE{ID: id, Data: f[pos+2 : pos+2+n]}) {
			return
		}
		pos += 2 + n
	}
}

// IEs returns all information elements
func (f Frame) IEs() []IE {
	var ies []IE
	f.Elements(func(ie IE) bool {
		ies = append(ies, ie)
		return true
	})
	return ies
}

// SSID returns the SSID element. A wildcard probe request yields an empty
// string with ok set.
func (f Frame) SSID() (ssid string, ok bool) {
	f.Elements(func(ie IE) bool {
		if ie.ID != IESSID {
			return true
		}
		ssid, ok = strings.ToValidUTF8(string(ie.Data), "�"), true
		return false
	})
	return ssid, ok
}
