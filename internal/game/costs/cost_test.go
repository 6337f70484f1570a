package costs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromParsed(t *testing.T) {
	components, err := FromParsed([]ParsedCostComponent{
		{Type: KindMana, ManaCost: "{1}{U}", Description: "{1}{U}"},
		{Type: KindTap, Description: "Tap an untapped creature you control"},
		{Type: KindLife, LifeAmount: 2, Description: "Pay 2 life"},
	})
	require.NoError(t, err)
	require.Len(t, components, 3)

	assert.Equal(t, 1, components[0].Mana.Generic)
	assert.Equal(t, 1, components[0].Mana.Blue)
	assert.Equal(t, 2, components[2].LifeAmount)
	assert.True(t, components[1].Mandatory)
}

func TestFromParsedBadMana(t *testing.T) {
	_, err := FromParsed([]ParsedCostComponent{
		{Type: KindMana, ManaCost: "{Z}"},
	})
	assert.Error(t, err)
}

func TestNeedsSelection(t *testing.T) {
	sac := Component{Kind: KindSacrifice, Count: 1, Filter: Filter{CardType: "Creature"}}
	assert.True(t, sac.NeedsSelection())

	explicit := Component{Kind: KindSacrifice, ObjectIDs: []string{"perm-1"}}
	assert.False(t, explicit.NeedsSelection())

	manaOnly := Component{Kind: KindMana}
	assert.False(t, manaOnly.NeedsSelection())
}

func TestSplit(t *testing.T) {
	components, err := FromParsed([]ParsedCostComponent{
		{Type: KindMana, ManaCost: "{1}{W}"},
		{Type: KindSacrifice, SacrificeFilter: &Filter{CardType: "Creature", ControllerOnly: true}},
		{Type: KindMana, ManaCost: "{R}"},
	})
	require.NoError(t, err)

	manaCost, nonMana := Split(components)
	require.NotNil(t, manaCost)
	assert.Equal(t, 1, manaCost.Generic)
	assert.Equal(t, 1, manaCost.White)
	assert.Equal(t, 1, manaCost.Red)
	require.Len(t, nonMana, 1)
	assert.Equal(t, KindSacrifice, nonMana[0].Kind)
}
