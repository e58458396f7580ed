package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the visualization service.
// Object fields resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Int},
		},
	})

	visType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VisParams",
		Fields: graphql.Fields{
			"min":        &graphql.Field{Type: graphql.Float},
			"max":        &graphql.Field{Type: graphql.Float},
			"palette":    &graphql.Field{Type: graphql.NewList(graphql.String)},
			"dimensions": &graphql.Field{Type: graphql.Int},
		},
	})

	datasetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dataset",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.String},
			"masked": &graphql.Field{Type: graphql.Boolean},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapLayer",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"dataset":    &graphql.Field{Type: datasetType},
			"map_name":   &graphql.Field{Type: graphql.String},
			"tile_url":   &graphql.Field{Type: graphql.String},
			"vis":        &graphql.Field{Type: visType},
			"view":       &graphql.Field{Type: mapViewType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	thumbnailType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Thumbnail",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"dataset":    &graphql.Field{Type: datasetType},
			"thumb_name": &graphql.Field{Type: graphql.String},
			"url":        &graphql.Field{Type: graphql.String},
			"vis":        &graphql.Field{Type: visType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	legendType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LegendEntry",
		Fields: graphql.Fields{
			"value": &graphql.Field{Type: graphql.Float},
			"color": &graphql.Field{Type: graphql.String},
		},
	})

	presetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CanopyPreset",
		Fields: graphql.Fields{
			"dataset":       &graphql.Field{Type: graphql.String},
			"layer_name":    &graphql.Field{Type: graphql.String},
			"vis":           &graphql.Field{Type: visType},
			"thumbnail_vis": &graphql.Field{Type: visType},
			"view":          &graphql.Field{Type: mapViewType},
			"legend":        &graphql.Field{Type: graphql.NewList(legendType)},
		},
	})

	visArgs := graphql.FieldConfigArgument{
		"dataset": &graphql.ArgumentConfig{Type: graphql.String},
		"masked":  &graphql.ArgumentConfig{Type: graphql.Boolean},
		"min":     &graphql.ArgumentConfig{Type: graphql.Float},
		"max":     &graphql.ArgumentConfig{Type: graphql.Float},
		"palette": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"layers": &graphql.Field{
				Type:        graphql.NewList(layerType),
				Description: "Recently registered map layers",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit, _ := p.Args["limit"].(int)
					return deps.Viz.ListLayers(p.Context, limit)
				},
			},
			"layer": &graphql.Field{
				Type:        layerType,
				Description: "Get a map layer by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					return deps.Viz.GetLayer(p.Context, id)
				},
			},
			"thumbnails": &graphql.Field{
				Type:        graphql.NewList(thumbnailType),
				Description: "Recently generated thumbnails",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit, _ := p.Args["limit"].(int)
					return deps.Viz.ListThumbnails(p.Context, limit)
				},
			},
			"canopyPreset": &graphql.Field{
				Type:        presetType,
				Description: "Canopy height visualization parameters and legend",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return canopyPreset()
				},
			},
		},
	})

	layerArgs := graphql.FieldConfigArgument{
		"name": &graphql.ArgumentConfig{Type: graphql.String},
		"lon":  &graphql.ArgumentConfig{Type: graphql.Float},
		"lat":  &graphql.ArgumentConfig{Type: graphql.Float},
		"zoom": &graphql.ArgumentConfig{Type: graphql.Int},
	}
	for k, v := range visArgs {
		layerArgs[k] = v
	}
	thumbArgs := graphql.FieldConfigArgument{
		"dimensions": &graphql.ArgumentConfig{Type: graphql.Int},
	}
	for k, v := range visArgs {
		thumbArgs[k] = v
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"registerLayer": &graphql.Field{
				Type:        layerType,
				Description: "Render a dataset and register it as a map layer",
				Args:        layerArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					dataset, vis := visFromArgs(p.Args, false)
					name, _ := p.Args["name"].(string)
					if name == "" && dataset.ID == domain.CanopyHeightDataset {
						name = domain.CanopyHeightLayerName
					}
					view := deps.View
					if lon, ok := p.Args["lon"].(float64); ok {
						view.Center.Lon = lon
					}
					if lat, ok := p.Args["lat"].(float64); ok {
						view.Center.Lat = lat
					}
					if zoom, ok := p.Args["zoom"].(int); ok {
						view.Zoom = zoom
					}
					return deps.Viz.Display(p.Context, dataset, vis, name, view)
				},
			},
			"createThumbnail": &graphql.Field{
				Type:        thumbnailType,
				Description: "Render a dataset to a static thumbnail URL",
				Args:        thumbArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					dataset, vis := visFromArgs(p.Args, true)
					vis.Dimensions = domain.CanopyThumbnailDimensions
					if d, ok := p.Args["dimensions"].(int); ok {
						vis.Dimensions = d
					}
					return deps.Viz.Thumbnail(p.Context, dataset, vis)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// visFromArgs overlays GraphQL arguments on the canopy height preset.
func visFromArgs(args map[string]interface{}, maskedDefault bool) (domain.DatasetRef, domain.VisParams) {
	id, _ := args["dataset"].(string)
	if id == "" {
		id = domain.CanopyHeightDataset
	}
	dataset := domain.Dataset(id)
	masked := maskedDefault
	if m, ok := args["masked"].(bool); ok {
		masked = m
	}
	if masked {
		dataset = dataset.SelfMasked()
	}

	vis := domain.CanopyHeightVis()
	if v, ok := args["min"].(float64); ok {
		vis.Min = v
	}
	if v, ok := args["max"].(float64); ok {
		vis.Max = v
	}
	if raw, ok := args["palette"].([]interface{}); ok && len(raw) > 0 {
		colors := make([]string, 0, len(raw))
		for _, c := range raw {
			s, _ := c.(string)
			colors = append(colors, s)
		}
		vis.Palette = domain.NormalizePalette(colors)
	}
	return dataset, vis
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
