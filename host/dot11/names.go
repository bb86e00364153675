package dot11

import "fmt"

var typeNames = [...]string{
	TypeMgmt: "mgmt",
	TypeCtrl: "ctrl",
	TypeData: "data",
	3:        "ext",
}

var mgmtNames = map[int]string{
	SubtypeAssocReq:  "assoc-req",
	SubtypeAssocResp: "assoc-resp",
	2:                "reassoc-req",
	3:                "reassoc-resp",
	SubtypeProbeReq:  "probe-req",
	SubtypeProbeResp: "probe-resp",
	SubtypeBeacon:    "beacon",
	9:                "atim",
	SubtypeDisassoc:  "disassoc",
	SubtypeAuth:      "auth",
	SubtypeDeauth:    "deauth",
	SubtypeAction:    "action",
}

var ctrlNames = map[int]string{
	8:  "block-ack-req",
	9:  "block-ack",
	10: "ps-poll",
	11: "rts",
	12: "cts",
	13: "ack",
	14: "cf-end",
}

var dataNames = map[int]string{
	0:  "data",
	4:  "null",
	8:  "qos-data",
	12: "qos-null",
}

// TypeName returns the name of the frame type
func (f Frame) TypeName() string {
	return typeNames[f.Type()]
}

// Name returns a short name for the type and subtype, e.g. "beacon"
func (f Frame) Name() string {
	var names map[int]string
	switch f.Type() {
	case TypeMgmt:
		names = mgmtNames
	case TypeCtrl:
		names = ctrlNames
	case TypeData:
		names = dataNames
	}
	if name, ok := names[f.Subtype()]; ok {
		return name
	}
	return fmt.Sprintf("%s/%d", f.TypeName(), f.Subtype())
}
