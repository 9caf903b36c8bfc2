package ipc

// LoginRequest carries a session-id the Lobby connection's auth collaborator
// resolves to a set of service accounts (§8 scenario 1). Its wire length is
// session-id-dependent, like ChatMessage.
type LoginRequest struct {
	SessionId string
}

func (LoginRequest) Opcode() Opcode { return OpLoginRequest }

func (p LoginRequest) Encode() []byte {
	id := []byte(p.SessionId)
	w := NewWriter(2 + len(id))
	w.U16(uint16(len(id)))
	w.Raw(id)
	return w.Bytes()
}

func DecodeLoginRequest(body []byte) (LoginRequest, error) {
	r := NewReader(body)
	n, err := r.U16()
	if err != nil {
		return LoginRequest{}, err
	}
	id, err := r.Bytes(int(n))
	if err != nil {
		return LoginRequest{}, err
	}
	return LoginRequest{SessionId: string(id)}, nil
}

// ServiceAccount is one entry in a LoginReply's account list.
type ServiceAccount struct {
	Id   uint32
	Name string
}

func encodeServiceAccount(w *Writer, a ServiceAccount) {
	name := []byte(a.Name)
	w.U32(a.Id)
	w.U16(uint16(len(name)))
	w.Raw(name)
}

func decodeServiceAccount(r *Reader) (ServiceAccount, error) {
	var a ServiceAccount
	var err error
	if a.Id, err = r.U32(); err != nil {
		return ServiceAccount{}, err
	}
	n, err := r.U16()
	if err != nil {
		return ServiceAccount{}, err
	}
	name, err := r.Bytes(int(n))
	if err != nil {
		return ServiceAccount{}, err
	}
	a.Name = string(name)
	return a, nil
}

// LoginReply lists the service accounts attached to the user behind the
// session-id a LoginRequest named (§8 scenario 1). An empty Accounts list
// means the session-id was unknown; the Lobby connection closes either way
// once it's sent.
type LoginReply struct {
	Accounts []ServiceAccount
}

func (LoginReply) Opcode() Opcode { return OpLoginReply }

func (p LoginReply) Encode() []byte {
	w := NewWriter(2)
	w.U16(uint16(len(p.Accounts)))
	for _, a := range p.Accounts {
		encodeServiceAccount(w, a)
	}
	return w.Bytes()
}

func DecodeLoginReply(body []byte) (LoginReply, error) {
	r := NewReader(body)
	n, err := r.U16()
	if err != nil {
		return LoginReply{}, err
	}
	accounts := make([]ServiceAccount, 0, n)
	for i := uint16(0); i < n; i++ {
		a, err := decodeServiceAccount(r)
		if err != nil {
			return LoginReply{}, err
		}
		accounts = append(accounts, a)
	}
	return LoginReply{Accounts: accounts}, nil
}
