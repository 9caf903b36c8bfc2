package ipc

// keepAliveRequestSize and keepAliveResponseSize are both id(4) + timestamp(4).
const keepAliveRequestSize = 4 + 4
const keepAliveResponseSize = 4 + 4

// KeepAliveRequest is sent by either side every ~30s to confirm liveness (§4.3).
type KeepAliveRequest struct {
	Id        uint32
	Timestamp uint32
}

func (KeepAliveRequest) Opcode() Opcode { return OpKeepAliveRequest }

func (p KeepAliveRequest) Encode() []byte {
	w := NewWriter(keepAliveRequestSize)
	w.U32(p.Id)
	w.U32(p.Timestamp)
	return w.Bytes()
}

func DecodeKeepAliveRequest(body []byte) (KeepAliveRequest, error) {
	r := NewReader(body)
	var p KeepAliveRequest
	var err error
	if p.Id, err = r.U32(); err != nil {
		return KeepAliveRequest{}, err
	}
	if p.Timestamp, err = r.U32(); err != nil {
		return KeepAliveRequest{}, err
	}
	return p, nil
}

// KeepAliveResponse echoes the id from a KeepAliveRequest (§4.3).
type KeepAliveResponse struct {
	Id        uint32
	Timestamp uint32
}

func (KeepAliveResponse) Opcode() Opcode { return OpKeepAliveResponse }

func (p KeepAliveResponse) Encode() []byte {
	w := NewWriter(keepAliveResponseSize)
	w.U32(p.Id)
	w.U32(p.Timestamp)
	return w.Bytes()
}

func DecodeKeepAliveResponse(body []byte) (KeepAliveResponse, error) {
	r := NewReader(body)
	var p KeepAliveResponse
	var err error
	if p.Id, err = r.U32(); err != nil {
		return KeepAliveResponse{}, err
	}
	if p.Timestamp, err = r.U32(); err != nil {
		return KeepAliveResponse{}, err
	}
	return p, nil
}
