package session

import "github.com/pion/webrtc/v3"

var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
}

// DefaultRTCConfig is the configuration sessions are created with in
// production: public STUN servers, all transport policies allowed.
func DefaultRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: defaultSTUNServers},
		},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}
