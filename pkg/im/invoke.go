package im

import (
	"context"

	"github.com/mkniffen/matterd/pkg/acl"
	"github.com/mkniffen/matterd/pkg/im/message"
)

// HandleInvoke runs an InvokeRequest's commands and reports each
// outcome (spec §4.9). Command handlers return either a response
// command or a status; the InvokeResponse mirrors the request path.
func (s *Server) HandleInvoke(ctx context.Context, reqCtx acl.Context, req message.InvokeRequestMessage) message.InvokeResponseMessage {
	var responses []message.InvokeResponseIB

	for _, cmd := range req.InvokeRequests {
		responses = append(responses, s.invokeOne(ctx, reqCtx, cmd))
	}

	return message.InvokeResponseMessage{
		SuppressResponse: req.SuppressResponse,
		InvokeResponses:  responses,
	}
}

func (s *Server) invokeOne(ctx context.Context, reqCtx acl.Context, cmd message.CommandDataIB) message.InvokeResponseIB {
	c, ok := s.Router.cluster(cmd.Path.Endpoint, cmd.Path.Cluster)
	if !ok {
		return s.commandStatus(cmd.Path, message.StatusUnsupportedCluster)
	}
	if !hasCommand(c, cmd.Path.Command) {
		return s.commandStatus(cmd.Path, message.StatusUnsupportedCommand)
	}
	if !acl.Check(reqCtx, s.entries(reqCtx), acl.PrivilegeOperate, uint16(cmd.Path.Endpoint), uint32(cmd.Path.Cluster)) {
		return s.commandStatus(cmd.Path, message.StatusUnsupportedAccess)
	}

	resp, err := c.InvokeCommand(ctx, reqCtx, cmd.Path.Command, cmd.Fields)
	if err != nil {
		return s.commandStatus(cmd.Path, message.StatusFailure)
	}
	if resp == nil {
		return s.commandStatus(cmd.Path, message.StatusSuccess)
	}
	return message.InvokeResponseIB{
		Command: &message.CommandDataIB{Path: cmd.Path, Fields: *resp},
	}
}

func (s *Server) commandStatus(path message.CommandPathIB, status message.Status) message.InvokeResponseIB {
	s.recordStatus(status)
	return message.InvokeResponseIB{
		Status: &message.CommandStatusIB{Path: path, Status: message.StatusIB{Status: status}},
	}
}

func hasCommand(c Cluster, id CommandID) bool {
	for _, cmd := range c.Commands() {
		if cmd == id {
			return true
		}
	}
	return false
}
