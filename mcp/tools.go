package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mbocsi/rosteleop/services"
	"github.com/sirupsen/logrus"
)

// Tools exposes the service container as MCP tools
type Tools struct {
	services *services.ServiceContainer
	log      logrus.FieldLogger
}

func NewTools(serviceContainer *services.ServiceContainer, logger logrus.FieldLogger) *Tools {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tools{
		services: serviceContainer,
		log:      logger.WithField("component", "mcp"),
	}
}

// Register adds every tool to s
func (t *Tools) Register(s *MCPServer) {
	t.registerStatusTools(s)
	t.registerMessagingTools(s)
	t.registerTeleopTools(s)
}

func (t *Tools) registerStatusTools(s *MCPServer) {
	statusTool := mcp.NewTool("get_connection_status",
		mcp.WithDescription("Get the rosbridge connection state, endpoint, subscribed topics and last error"),
	)
	s.AddTool(statusTool, t.handleGetConnectionStatus)

	connectTool := mcp.NewTool("connect",
		mcp.WithDescription("Reconnect to rosbridge, optionally switching to a new ws:// or wss:// endpoint"),
		mcp.WithString("endpoint",
			mcp.Description("New endpoint URI; keeps the current one when omitted"),
		),
	)
	s.AddTool(connectTool, t.handleConnect)
}

func (t *Tools) registerMessagingTools(s *MCPServer) {
	publishTool := mcp.NewTool("publish_message",
		mcp.WithDescription("Publish a message on a ROS topic"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Topic name, starting with /"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("ROS message type"),
			mcp.Enum("std_msgs/String", "std_msgs/Int32", "std_msgs/Bool", "std_msgs/Float32",
				"std_msgs/Float64", "geometry_msgs/Twist", "geometry_msgs/Pose2D", "custom"),
		),
		mcp.WithObject("msg",
			mcp.Required(),
			mcp.Description("Message body matching the type, e.g. {\"data\": \"hello\"}"),
		),
	)
	s.AddTool(publishTool, t.handlePublishMessage)

	subscribeTool := mcp.NewTool("subscribe_topic",
		mcp.WithDescription("Subscribe to a ROS topic; received messages show up in list_messages"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Topic name, starting with /"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("ROS message type"),
		),
	)
	s.AddTool(subscribeTool, t.handleSubscribeTopic)

	callTool := mcp.NewTool("call_service",
		mcp.WithDescription("Call a ROS service and wait for its response"),
		mcp.WithString("service",
			mcp.Required(),
			mcp.Description("Service name, starting with /"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("ROS service type"),
		),
		mcp.WithObject("args",
			mcp.Description("Service request arguments"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Timeout in milliseconds"),
		),
	)
	s.AddTool(callTool, t.handleCallService)

	listTool := mcp.NewTool("list_messages",
		mcp.WithDescription("List the most recent messages received from subscribed topics, oldest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (default 20)"),
		),
	)
	s.AddTool(listTool, t.handleListMessages)
}

func (t *Tools) registerTeleopTools(s *MCPServer) {
	poseTool := mcp.NewTool("get_robot_pose",
		mcp.WithDescription("Get the latest robot pose (x, y and heading in degrees)"),
	)
	s.AddTool(poseTool, t.handleGetRobotPose)

	dpadTool := mcp.NewTool("send_dpad",
		mcp.WithDescription("Send a D-pad drive command to the robot"),
		mcp.WithString("direction",
			mcp.Required(),
			mcp.Description("Direction to drive"),
			mcp.Enum("up", "down", "left", "right", "center"),
		),
	)
	s.AddTool(dpadTool, t.handleSendDPad)

	angleTool := mcp.NewTool("set_angle",
		mcp.WithDescription("Set the robot heading angle"),
		mcp.WithNumber("deg",
			mcp.Required(),
			mcp.Description("Angle in degrees, 0 to 360"),
		),
	)
	s.AddTool(angleTool, t.handleSetAngle)
}

func (t *Tools) handleGetConnectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.services.Status.GetStatus())
}

func (t *Tools) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	endpoint := request.GetString("endpoint", "")
	if err := t.services.Status.Connect(endpoint); err != nil {
		return t.errorResult("Failed to connect", err), nil
	}
	return mcp.NewToolResultText("Connecting to " + t.services.Status.GetStatus().Endpoint), nil
}

func (t *Tools) handlePublishMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic is required and must be a string"), nil
	}
	msgType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type is required and must be a string"), nil
	}
	msg, ok, err := rawArgument(request, "msg")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal msg: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError("msg is required"), nil
	}

	if err := t.services.Messaging.Publish(services.PublishRequest{Topic: topic, Type: msgType, Msg: msg}); err != nil {
		return t.errorResult("Failed to publish", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Published %s on %s", msgType, topic)), nil
}

func (t *Tools) handleSubscribeTopic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic is required and must be a string"), nil
	}
	msgType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type is required and must be a string"), nil
	}
	if err := t.services.Messaging.Subscribe(services.SubscribeRequest{Topic: topic, Type: msgType}); err != nil {
		return t.errorResult("Failed to subscribe", err), nil
	}
	return mcp.NewToolResultText("Subscribed to " + topic), nil
}

func (t *Tools) handleCallService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := request.RequireString("service")
	if err != nil {
		return mcp.NewToolResultError("service is required and must be a string"), nil
	}
	srvType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type is required and must be a string"), nil
	}
	args, _, err := rawArgument(request, "args")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal args: %v", err)), nil
	}

	res, err := t.services.Messaging.CallService(ctx, services.CallRequest{
		Service:   service,
		Type:      srvType,
		Args:      args,
		TimeoutMs: int(request.GetFloat("timeout_ms", 0)),
	})
	if err != nil {
		return t.errorResult("Service call failed", err), nil
	}
	return jsonResult(res)
}

func (t *Tools) handleListMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 20))
	msgs := t.services.Teleop.Messages(limit)
	return jsonResult(map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (t *Tools) handleGetRobotPose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, ok := t.services.Teleop.Pose()
	if !ok {
		return mcp.NewToolResultError("No pose received yet"), nil
	}
	return jsonResult(pos)
}

func (t *Tools) handleSendDPad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	direction, err := request.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError("direction is required and must be a string"), nil
	}
	if err := t.services.Teleop.SendDPad(direction); err != nil {
		return t.errorResult("Failed to send D-pad command", err), nil
	}
	return mcp.NewToolResultText("Sent " + direction), nil
}

func (t *Tools) handleSetAngle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deg, err := request.RequireFloat("deg")
	if err != nil {
		return mcp.NewToolResultError("deg is required and must be a number"), nil
	}
	if err := t.services.Teleop.SetAngle(deg); err != nil {
		return t.errorResult("Failed to set angle", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Angle set to %g", deg)), nil
}

// rawArgument re-encodes one object argument as JSON
func rawArgument(request mcp.CallToolRequest, name string) (json.RawMessage, bool, error) {
	args, ok := request.GetRawArguments().(map[string]any)
	if !ok {
		return nil, false, nil
	}
	v, exists := args[name]
	if !exists || v == nil {
		return nil, false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *Tools) errorResult(prefix string, err error) *mcp.CallToolResult {
	t.log.WithError(err).Debug(prefix)
	var serviceErr services.ServiceError
	if errors.As(err, &serviceErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s): %s", prefix, serviceErr.Code, serviceErr.Error()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}
