// Package plugin lets external processes provide search backends over
// hashicorp/go-plugin. A plugin binary serves a SearchPlugin; the host
// dispenses it and adapts it to the internal search.Provider interface.
package plugin

import (
	"context"
	"net/rpc"
	"os/exec"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/felixgeelhaar/scout/internal/search"
)

// HandshakeConfig is used to handshake between host and plugin.
var HandshakeConfig = hcplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SCOUT_PLUGIN_MAGIC_COOKIE",
	MagicCookieValue: "scout-research",
}

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]hcplugin.Plugin{
	"search": &SearchRPCPlugin{},
}

// SearchPlugin is the contract a search plugin implements.
type SearchPlugin interface {
	Name() string
	Search(query string, maxResults int) ([]search.Result, error)
}

// SearchRPCPlugin is the hcplugin.Plugin implementation over net/rpc.
type SearchRPCPlugin struct {
	Impl SearchPlugin
}

func (p *SearchRPCPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &SearchRPCServer{Impl: p.Impl}, nil
}

func (p *SearchRPCPlugin) Client(b *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &SearchRPCClient{client: c}, nil
}

type SearchArgs struct {
	Query      string
	MaxResults int
}

type SearchReply struct {
	Results []search.Result
}

// SearchRPCServer runs inside the plugin process and calls the local
// implementation.
type SearchRPCServer struct {
	Impl SearchPlugin
}

func (s *SearchRPCServer) Name(args interface{}, reply *string) error {
	*reply = s.Impl.Name()
	return nil
}

func (s *SearchRPCServer) Search(args SearchArgs, reply *SearchReply) error {
	results, err := s.Impl.Search(args.Query, args.MaxResults)
	if err != nil {
		return err
	}
	reply.Results = results
	return nil
}

// SearchRPCClient runs in the host and talks over RPC.
type SearchRPCClient struct {
	client *rpc.Client
}

func (c *SearchRPCClient) Name() string {
	var name string
	if err := c.client.Call("Plugin.Name", new(interface{}), &name); err != nil {
		return "plugin"
	}
	return name
}

func (c *SearchRPCClient) Search(query string, maxResults int) ([]search.Result, error) {
	var reply SearchReply
	err := c.client.Call("Plugin.Search", SearchArgs{Query: query, MaxResults: maxResults}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Results, nil
}

// Provider adapts a dispensed SearchPlugin to search.Provider. The RPC
// layer has no context support; cancellation only prevents the call from
// starting.
type Provider struct {
	plugin SearchPlugin
	kill   func()
}

func (p *Provider) Name() string {
	return "plugin:" + p.plugin.Name()
}

func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.plugin.Search(query, maxResults)
}

// Close kills the plugin subprocess.
func (p *Provider) Close() {
	if p.kill != nil {
		p.kill()
	}
}

// Open launches a plugin binary and returns it as a search.Provider.
func Open(path string) (*Provider, error) {
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(path), // #nosec G204
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, err
	}

	raw, err := rpcClient.Dispense("search")
	if err != nil {
		client.Kill()
		return nil, err
	}

	return &Provider{
		plugin: raw.(SearchPlugin),
		kill:   client.Kill,
	}, nil
}

// Serve is called from a plugin binary's main to serve its search
// implementation to the host.
func Serve(impl SearchPlugin) {
	hcplugin.Serve(&hcplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hcplugin.Plugin{
			"search": &SearchRPCPlugin{Impl: impl},
		},
	})
}
