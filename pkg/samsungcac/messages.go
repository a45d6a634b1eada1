package samsungcac

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Message types carried in the Type attribute.
const (
	TypeGetToken          = "GetToken"
	TypeAuthToken         = "AuthToken"
	TypeDeviceList        = "DeviceList"
	TypeDeviceState       = "DeviceState"
	TypeDeviceControl     = "DeviceControl"
	TypeInvalidateAccount = "InvalidateAccount"
	TypeStatus            = "Status"
)

// Inbound root elements.
const (
	RootUpdate   = "Update"
	RootResponse = "Response"
)

// DefaultCommandID is sent with every DeviceControl request. The
// controller has only been observed with this value.
const DefaultCommandID = "cmd00000"

// xmlDeclaration prefixes every outbound document. encoding/xml's Header
// ends in a newline, which would split the frame.
const xmlDeclaration = `<?xml version="1.0" encoding="utf-8" ?>`

const frameTerminator = "\r\n"

// Request is an outbound message. The set of implementations is closed.
type Request interface {
	RequestType() string
	envelope() requestEnvelope
}

type requestEnvelope struct {
	XMLName  xml.Name        `xml:"Request"`
	Type     string          `xml:"Type,attr"`
	StartNum int             `xml:"StartNum,attr,omitempty"`
	Count    int             `xml:"Count,attr,omitempty"`
	GroupID  string          `xml:"GroupID,attr,omitempty"`
	DUID     string          `xml:"DUID,attr,omitempty"`
	User     *userElement    `xml:"User,omitempty"`
	Control  *controlElement `xml:"Control,omitempty"`
}

type userElement struct {
	Token string `xml:"Token,attr"`
}

type controlElement struct {
	CommandID string        `xml:"CommandID,attr"`
	DUID      string        `xml:"DUID,attr"`
	Attrs     []ControlAttr `xml:"Attr"`
}

// ControlAttr is one directive inside a DeviceControl request.
type ControlAttr struct {
	ID    string `xml:"ID,attr"`
	Value string `xml:"Value,attr"`
}

// GetTokenRequest asks the controller for a new authentication token.
type GetTokenRequest struct{}

func (GetTokenRequest) RequestType() string { return TypeGetToken }

func (GetTokenRequest) envelope() requestEnvelope {
	return requestEnvelope{Type: TypeGetToken}
}

// AuthTokenRequest authenticates the session.
type AuthTokenRequest struct {
	Token string
}

func (AuthTokenRequest) RequestType() string { return TypeAuthToken }

func (r AuthTokenRequest) envelope() requestEnvelope {
	return requestEnvelope{Type: TypeAuthToken, User: &userElement{Token: r.Token}}
}

// DeviceListRequest lists devices in a group.
type DeviceListRequest struct {
	Start int
	Count int
	Group string
}

func (DeviceListRequest) RequestType() string { return TypeDeviceList }

func (r DeviceListRequest) envelope() requestEnvelope {
	return requestEnvelope{
		Type:     TypeDeviceList,
		StartNum: r.Start,
		Count:    r.Count,
		GroupID:  r.Group,
	}
}

// DeviceStateRequest asks for the full attribute set of one device.
type DeviceStateRequest struct {
	DUID string
}

func (DeviceStateRequest) RequestType() string { return TypeDeviceState }

func (r DeviceStateRequest) envelope() requestEnvelope {
	return requestEnvelope{Type: TypeDeviceState, DUID: r.DUID}
}

// DeviceControlRequest changes one or more attributes of a device.
type DeviceControlRequest struct {
	CommandID string
	DUID      string
	Attrs     []ControlAttr
}

func (DeviceControlRequest) RequestType() string { return TypeDeviceControl }

func (r DeviceControlRequest) envelope() requestEnvelope {
	cmd := r.CommandID
	if cmd == "" {
		cmd = DefaultCommandID
	}
	return requestEnvelope{
		Type: TypeDeviceControl,
		Control: &controlElement{
			CommandID: cmd,
			DUID:      r.DUID,
			Attrs:     r.Attrs,
		},
	}
}

// ControlOptions selects the attributes a DeviceControl request changes.
// Nil fields are left out of the request.
type ControlOptions struct {
	Power             *PowerMode
	Operation         *OperationMode
	TargetTemperature *float64
	FanSpeed          *FanSpeed
	Fan               *FanMode
}

// Attrs returns the control attributes in wire order.
func (o ControlOptions) Attrs() []ControlAttr {
	var attrs []ControlAttr
	if o.Power != nil {
		attrs = append(attrs, ControlAttr{ID: AttrPower, Value: string(*o.Power)})
	}
	if o.Operation != nil {
		attrs = append(attrs, ControlAttr{ID: AttrOpMode, Value: string(*o.Operation)})
	}
	if o.TargetTemperature != nil {
		attrs = append(attrs, ControlAttr{ID: AttrTargetTemp, Value: strconv.FormatFloat(*o.TargetTemperature, 'f', -1, 64)})
	}
	if o.FanSpeed != nil {
		attrs = append(attrs, ControlAttr{ID: AttrFanSpeed, Value: string(*o.FanSpeed)})
	}
	if o.Fan != nil {
		attrs = append(attrs, ControlAttr{ID: AttrFan, Value: string(*o.Fan)})
	}
	return attrs
}

// EncodeRequest serializes r as a single CRLF terminated line.
func EncodeRequest(r Request) ([]byte, error) {
	body, err := xml.Marshal(r.envelope())
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.RequestType(), err)
	}

	buf := make([]byte, 0, len(xmlDeclaration)+len(body)+len(frameTerminator))
	buf = append(buf, xmlDeclaration...)
	buf = append(buf, body...)
	buf = append(buf, frameTerminator...)
	return buf, nil
}

// Header holds the attributes shared by every inbound message.
type Header struct {
	Root      string
	Type      string
	Status    string
	ErrorCode string
}

// Head returns the message header.
func (h Header) Head() Header { return h }

func (Header) inbound() {}

// Message is a decoded inbound frame. The set of implementations is closed.
type Message interface {
	Head() Header
	inbound()
}

// DeviceDescriptor identifies a device in a reply or update.
type DeviceDescriptor struct {
	ID    string
	Group string
	Model string
}

// InvalidateAccountUpdate marks the connection ready for traffic.
type InvalidateAccountUpdate struct {
	Header
}

// TokenUpdate carries the token requested by GetToken.
type TokenUpdate struct {
	Header
	Token string
}

// StatusUpdate is an unsolicited change to a device's attributes.
type StatusUpdate struct {
	Header
	Device     DeviceDescriptor
	Attributes []Attribute
}

// GetTokenResponse acknowledges a GetToken request. The token itself
// arrives later as a TokenUpdate.
type GetTokenResponse struct {
	Header
}

// AuthTokenResponse answers AuthToken.
type AuthTokenResponse struct {
	Header
	StartFrom string
}

// DeviceListResponse answers DeviceList.
type DeviceListResponse struct {
	Header
	Devices []DeviceDescriptor
}

// DeviceStateResponse answers DeviceState.
type DeviceStateResponse struct {
	Header
	Device     DeviceDescriptor
	Attributes []Attribute
}

// DeviceControlResponse answers DeviceControl.
type DeviceControlResponse struct {
	Header
	DUID      string
	CommandID string
}

// GenericResponse is any Response whose Type has no dedicated variant.
type GenericResponse struct {
	Header
}

type inboundEnvelope struct {
	XMLName     xml.Name
	Type        string          `xml:"Type,attr"`
	Status      string          `xml:"Status,attr"`
	ErrorCode   string          `xml:"ErrorCode,attr"`
	Token       string          `xml:"Token,attr"`
	StartFrom   string          `xml:"StartFrom,attr"`
	DUID        string          `xml:"DUID,attr"`
	CommandID   string          `xml:"CommandID,attr"`
	StatusElems []deviceElement `xml:"Status"`
	DeviceList  *deviceGroup    `xml:"DeviceList"`
	DeviceState *deviceGroup    `xml:"DeviceState"`
}

type deviceGroup struct {
	Devices []deviceElement `xml:"Device"`
}

type deviceElement struct {
	DUID    string      `xml:"DUID,attr"`
	GroupID string      `xml:"GroupID,attr"`
	ModelID string      `xml:"ModelID,attr"`
	Attrs   []Attribute `xml:"Attr"`
}

func (e deviceElement) descriptor() DeviceDescriptor {
	return DeviceDescriptor{ID: e.DUID, Group: e.GroupID, Model: e.ModelID}
}

// DecodeMessage parses one frame. Invalid XML, or anything other than
// whitespace and comments after the root element, yields
// ErrMalformedFrame; a root other than Update or Response yields
// ErrUnknownRoot.
func DecodeMessage(frame []byte) (Message, error) {
	var env inboundEnvelope
	dec := xml.NewDecoder(bytes.NewReader(frame))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if err := expectEOF(dec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	h := Header{
		Root:      env.XMLName.Local,
		Type:      env.Type,
		Status:    env.Status,
		ErrorCode: env.ErrorCode,
	}

	switch h.Root {
	case RootUpdate:
		return decodeUpdate(h, &env), nil
	case RootResponse:
		return decodeResponse(h, &env), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, h.Root)
	}
}

func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("trailing text after root element: %q", string(t))
			}
		default:
			return errors.New("trailing content after root element")
		}
	}
}

func decodeUpdate(h Header, env *inboundEnvelope) Message {
	switch h.Type {
	case TypeInvalidateAccount:
		return &InvalidateAccountUpdate{Header: h}
	case TypeGetToken:
		return &TokenUpdate{Header: h, Token: env.Token}
	}

	u := &StatusUpdate{Header: h}
	if len(env.StatusElems) > 0 {
		u.Device = env.StatusElems[0].descriptor()
		u.Attributes = env.StatusElems[0].Attrs
	}
	return u
}

func decodeResponse(h Header, env *inboundEnvelope) Message {
	switch h.Type {
	case TypeGetToken:
		return &GetTokenResponse{Header: h}
	case TypeAuthToken:
		return &AuthTokenResponse{Header: h, StartFrom: env.StartFrom}
	case TypeDeviceList:
		r := &DeviceListResponse{Header: h}
		if env.DeviceList != nil {
			r.Devices = make([]DeviceDescriptor, 0, len(env.DeviceList.Devices))
			for _, d := range env.DeviceList.Devices {
				r.Devices = append(r.Devices, d.descriptor())
			}
		}
		return r
	case TypeDeviceState:
		r := &DeviceStateResponse{Header: h}
		if env.DeviceState != nil && len(env.DeviceState.Devices) > 0 {
			d := env.DeviceState.Devices[0]
			r.Device = d.descriptor()
			r.Attributes = d.Attrs
		}
		return r
	case TypeDeviceControl:
		return &DeviceControlResponse{Header: h, DUID: env.DUID, CommandID: env.CommandID}
	default:
		return &GenericResponse{Header: h}
	}
}
