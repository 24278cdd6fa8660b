package http

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/scene"
)

// buildSchema creates the GraphQL schema wired to the scene and journeys.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	popupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Popup",
		Fields: graphql.Fields{
			"kind":     &graphql.Field{Type: graphql.String},
			"layer":    &graphql.Field{Type: graphql.String},
			"title":    &graphql.Field{Type: graphql.String},
			"subtitle": &graphql.Field{Type: graphql.String},
			"accent":   &graphql.Field{Type: graphql.String},
			"anchor":   &graphql.Field{Type: coordinateType},
			"rows": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "PopupRow",
				Fields: graphql.Fields{
					"label": &graphql.Field{Type: graphql.String},
					"value": &graphql.Field{Type: graphql.String},
				},
			}))},
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"state":      &graphql.Field{Type: graphql.String},
			"error":      &graphql.Field{Type: graphql.String},
			"diagnostic": &graphql.Field{Type: graphql.String},
			"isLoading":  &graphql.Field{Type: graphql.Boolean},
			"zoom":       &graphql.Field{Type: graphql.Float},
			"cursor":     &graphql.Field{Type: graphql.String},
			"popup":      &graphql.Field{Type: popupType},
			"visibility": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "GroupVisibility",
				Fields: graphql.Fields{
					"group":   &graphql.Field{Type: graphql.String},
					"visible": &graphql.Field{Type: graphql.Boolean},
				},
			}))},
			"featureCounts": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "SourceCount",
				Fields: graphql.Fields{
					"source": &graphql.Field{Type: graphql.String},
					"count":  &graphql.Field{Type: graphql.Int},
				},
			}))},
			"atmosphere": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "Atmosphere",
				Fields: graphql.Fields{
					"brightness": &graphql.Field{Type: graphql.Float},
					"saturation": &graphql.Field{Type: graphql.Float},
					"fogOpacity": &graphql.Field{Type: graphql.Float},
				},
			})},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Layer",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"source":      &graphql.Field{Type: graphql.String},
			"group":       &graphql.Field{Type: graphql.String},
			"interactive": &graphql.Field{Type: graphql.Boolean},
		},
	})

	journeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Journey",
		Fields: graphql.Fields{
			"tracking_id":      &graphql.Field{Type: graphql.String},
			"carrier":          &graphql.Field{Type: graphql.String},
			"status":           &graphql.Field{Type: graphql.String},
			"color":            &graphql.Field{Type: graphql.String},
			"waypoints":        &graphql.Field{Type: graphql.Int},
			"renderable":       &graphql.Field{Type: graphql.Boolean},
			"origin_city":      &graphql.Field{Type: graphql.String},
			"destination_city": &graphql.Field{Type: graphql.String},
			"transit_hours":    &graphql.Field{Type: graphql.Float},
			"transit_label":    &graphql.Field{Type: graphql.String},
		},
	})

	resolveScene := func(p graphql.ResolveParams) (interface{}, error) {
		return sceneToMap(deps.Scene.View()), nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"scene": &graphql.Field{
				Type:        sceneType,
				Description: "Current scene state",
				Resolve:     resolveScene,
			},
			"layers": &graphql.Field{
				Type:        graphql.NewList(layerType),
				Description: "Declared layers in paint order, optionally for one group",
				Args: graphql.FieldConfigArgument{
					"group": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					group, _ := p.Args["group"].(string)
					var out []map[string]interface{}
					for _, l := range deps.Scene.Registry().Layers() {
						if group != "" && string(l.Group) != group {
							continue
						}
						out = append(out, map[string]interface{}{
							"id":          l.ID,
							"type":        string(l.Type),
							"source":      l.Source,
							"group":       string(l.Group),
							"interactive": l.Interactive(),
						})
					}
					return out, nil
				},
			},
			"journeys": &graphql.Field{
				Type:        graphql.NewList(journeyType),
				Description: "Active shipment journeys with map colours",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					journeys, _, err := deps.Journeys.List(p.Context, limit, offset)
					return journeys, err
				},
			},
			"journey": &graphql.Field{
				Type:        journeyType,
				Description: "Get a journey by tracking id",
				Args: graphql.FieldConfigArgument{
					"tracking_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Journeys.Get(p.Context, p.Args["tracking_id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setVisibility": &graphql.Field{
				Type:        sceneType,
				Description: "Show or hide one layer group",
				Args: graphql.FieldConfigArgument{
					"group":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"visible": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					g := domain.LayerGroup(p.Args["group"].(string))
					if !g.Valid() {
						return nil, fmt.Errorf("unknown layer group %q", g)
					}
					deps.Scene.SetVisibility(domain.LayerVisibilityState{g: p.Args["visible"].(bool)})
					return resolveScene(p)
				},
			},
			"closePopup": &graphql.Field{
				Type: sceneType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					deps.Scene.ClosePopup()
					return resolveScene(p)
				},
			},
			"resetView": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Scene.ResetView(); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func sceneToMap(v scene.View) map[string]interface{} {
	visibility := make([]map[string]interface{}, 0, len(domain.LayerGroups))
	for _, g := range domain.LayerGroups {
		visibility = append(visibility, map[string]interface{}{"group": string(g), "visible": v.Visibility[g]})
	}

	sources := make([]string, 0, len(v.FeatureCounts))
	for name := range v.FeatureCounts {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	counts := make([]map[string]interface{}, 0, len(sources))
	for _, name := range sources {
		counts = append(counts, map[string]interface{}{"source": name, "count": v.FeatureCounts[name]})
	}

	m := map[string]interface{}{
		"state":         v.State.String(),
		"error":         v.Error,
		"diagnostic":    v.Diagnostic,
		"isLoading":     v.Loading,
		"zoom":          v.Zoom,
		"cursor":        v.Cursor,
		"visibility":    visibility,
		"featureCounts": counts,
		"atmosphere": map[string]interface{}{
			"brightness": v.Atmosphere.Brightness,
			"saturation": v.Atmosphere.Saturation,
			"fogOpacity": v.Atmosphere.FogOpacity,
		},
	}
	if v.Popup != nil {
		m["popup"] = v.Popup
	}
	return m
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
