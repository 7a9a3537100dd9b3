package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/snippet"
	"github.com/kolah/speclens/internal/workspace"
	"github.com/spf13/cobra"
)

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints <spec>",
		Short: "List the endpoints of a spec file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.loadSpec(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			search, _ := cmd.Flags().GetString("search")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			methods, _ := cmd.Flags().GetStringSlice("method")

			eps := endpoint.Filter(endpoint.Parse(res.Document), endpoint.Criteria{
				Search:  search,
				Tags:    tags,
				Methods: endpoint.ParseMethods(methods),
			})
			a.out.Endpoints(eps)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("search", "q", "", "Match path, summary, description, operation ID or tag")
	flags.StringSlice("tag", nil, "Only endpoints with one of these tags")
	flags.StringSlice("method", nil, "Only these HTTP methods")

	return cmd
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <spec>",
		Short: "List the tags used by a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.loadSpec(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.out.Tags(endpoint.AllTags(res.Document))
			return nil
		},
	}
}

func newExampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example <spec> <method> <path>",
		Short: "Show parameters and generated examples for one endpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.loadSpec(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			method := model.Method(strings.ToUpper(args[1]))
			ep, ok := endpoint.Find(endpoint.Parse(res.Document), method, args[2])
			if !ok {
				return fmt.Errorf("%w: %s %s", workspace.ErrEndpointNotFound, method, args[2])
			}
			d := workspace.Describe(res.Document, ep)
			if isURL(args[0]) {
				d.Servers = endpoint.ResolveAgainst(d.Servers, args[0])
			}

			if name, _ := cmd.Flags().GetString("snippet"); name != "" {
				f, err := snippet.ParseFormat(name)
				if err != nil {
					return err
				}
				engine, err := snippet.NewEngine(a.cfg.Templates.Dir)
				if err != nil {
					return err
				}
				out, err := engine.Render(f, executor.Prepare(exampleInput(d), executor.AuthConfig{}, nil, nil))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return a.out.JSON(d)
			}
			a.out.Detail(d)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("snippet", "", "Print a request snippet instead: curl, http")
	flags.Bool("json", false, "Print as JSON")

	return cmd
}

// exampleInput fills every parameter and the body with its generated
// example, against the first server.
func exampleInput(d workspace.Detail) executor.Input {
	in := executor.Input{
		Method:      string(d.Method),
		Path:        d.Path,
		PathParams:  map[string]string{},
		QueryParams: map[string]string{},
		Headers:     map[string]string{},
	}
	if len(d.Servers) > 0 {
		in.BaseURL = d.Servers[0]
	}
	for _, p := range d.Parameters {
		if p.Example == nil {
			continue
		}
		value := exampleText(p.Example)
		switch p.In {
		case model.LocationPath:
			in.PathParams[p.Name] = value
		case model.LocationQuery:
			in.QueryParams[p.Name] = value
		case model.LocationHeader:
			in.Headers[p.Name] = value
		}
	}
	if d.RequestBody != nil && d.RequestBody.Value != nil {
		in.Body = exampleText(d.RequestBody.Value)
		if d.RequestBody.ContentType != "" {
			in.Headers["Content-Type"] = d.RequestBody.ContentType
		}
	}
	return in
}

func exampleText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
