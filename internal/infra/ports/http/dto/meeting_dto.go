package dto

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/domain/output"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ListMeetingsResponse struct {
	Meetings []*models.Meeting `json:"meetings"`
}

type ParticipantsResponse struct {
	Participants []*models.Participant `json:"participants"`
}

type JoinMeetingRequest struct {
	Role *models.Role `json:"role"`
}

type JoinMeetingResponse struct {
	Meeting      *models.Meeting     `json:"meeting"`
	Participant  *models.Participant `json:"participant"`
	Token        string              `json:"token"`
	ChannelID    string              `json:"channelId"`
	TransportUID uint32              `json:"uid"`
	Degraded     bool                `json:"degraded"`
	ICEServers   []webrtc.ICEServer  `json:"iceServers,omitempty"`
}

func NewJoinMeetingResponse(res *output.JoinResult, iceServers []webrtc.ICEServer) JoinMeetingResponse {
	return JoinMeetingResponse{
		Meeting:      res.Meeting,
		Participant:  res.Participant,
		Token:        res.Token,
		ChannelID:    res.Meeting.ChannelID,
		TransportUID: res.TransportUID,
		Degraded:     res.Degraded,
		ICEServers:   iceServers,
	}
}

type VolumeRequest struct {
	Volume *int `json:"volume"`
}

type ResourcesResponse struct {
	Resources []models.ResourceShare `json:"resources"`
}

type QualityReportRequest struct {
	Quality    models.NetworkQuality `json:"quality"`
	RTT        int                   `json:"rtt"`
	PacketLoss float64               `json:"packetLoss"`
	Bandwidth  int                   `json:"bandwidth"`
	Timestamp  time.Time             `json:"timestamp"`
}

type QualityResponse struct {
	Sample         *models.NetworkQualitySample `json:"sample,omitempty"`
	Recommendation models.Recommendation        `json:"recommendation"`
}

type ReconnectAttemptResponse struct {
	State         models.ReconnectionState `json:"state"`
	ShouldAttempt bool                     `json:"shouldAttempt"`
	Status        models.ReconnectStatus   `json:"status"`
}
