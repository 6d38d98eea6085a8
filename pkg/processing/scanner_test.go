package processing

import (
	"testing"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_Kotlin(t *testing.T) {
	src := `
package com.example.model

import com.example.annotations.Marker
import com.other.Thing as Alias
import com.wild.*

// class Commented
/* class AlsoCommented */
@Marker
data class User(val name: String) {
    companion object Factory {
        fun create() = User("class Fake")
    }
}

@Marker @Deprecated("x")
internal sealed interface Shape

object Singleton

enum class Color { RED, GREEN }

annotation class Local

fun interface Callback { fun call() }

val mention = Alias::class
`
	idx := Scan("/src/User.kt", src)

	assert.Equal(t, "com.example.model", idx.Package)
	assert.Equal(t, sources.KindKotlin, idx.Language)
	assert.Equal(t, "com.example.annotations.Marker", idx.Imports["Marker"])
	assert.Equal(t, "com.other.Thing", idx.Imports["Alias"])
	assert.Equal(t, []string{"com.wild"}, idx.WildcardImports)

	var names []string
	for _, d := range idx.Declarations {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"User", "Shape", "Singleton", "Color", "Local", "Callback"}, names)
	assert.Contains(t, idx.TypeNames, "Factory")

	user := idx.Declarations[0]
	assert.Equal(t, extensions.DeclClass, user.Kind)
	assert.Equal(t, []string{"com.example.annotations.Marker"}, user.Annotations)
	assert.Equal(t, "com.example.model.User", user.QualifiedName())
	assert.Equal(t, "/src/User.kt", user.File)

	shape := idx.Declarations[1]
	assert.Equal(t, extensions.DeclInterface, shape.Kind)
	assert.Equal(t, []string{"com.example.annotations.Marker", "Deprecated"}, shape.Annotations)

	assert.Equal(t, extensions.DeclObject, idx.Declarations[2].Kind)
	assert.Equal(t, extensions.DeclEnum, idx.Declarations[3].Kind)
	assert.Equal(t, extensions.DeclAnnotation, idx.Declarations[4].Kind)
	assert.Equal(t, extensions.DeclInterface, idx.Declarations[5].Kind)

	assert.Contains(t, idx.References, "String")
	assert.Contains(t, idx.References, "Alias")
	assert.NotContains(t, idx.References, "Commented")
	assert.NotContains(t, idx.References, "Fake")
}

func TestScan_Java(t *testing.T) {
	src := `package com.example;

import java.lang.annotation.Retention;
import static java.lang.annotation.RetentionPolicy.SOURCE;

@Retention(SOURCE)
public @interface Marker {}

final class Helper {
    static class Inner {}
    String s = "record Fake";
}

record Point(int x, int y) {}
`
	idx := Scan("/src/com/example/Marker.java", src)
	assert.Equal(t, "com.example", idx.Package)
	assert.Equal(t, sources.KindJava, idx.Language)

	require.Len(t, idx.Declarations, 3)
	assert.Equal(t, "Marker", idx.Declarations[0].Name)
	assert.Equal(t, extensions.DeclAnnotation, idx.Declarations[0].Kind)
	assert.Equal(t, []string{"java.lang.annotation.Retention"}, idx.Declarations[0].Annotations)
	assert.Equal(t, "Helper", idx.Declarations[1].Name)
	assert.Equal(t, extensions.DeclRecord, idx.Declarations[2].Kind)
	assert.Contains(t, idx.TypeNames, "Inner")
	assert.True(t, idx.Resolves("Inner"))
	assert.True(t, idx.Resolves("Retention"))
	assert.False(t, idx.Resolves("Fake"))
}

func TestResolveAnnotations(t *testing.T) {
	marker := Scan("/a/Marker.kt", "package com.example\nannotation class Marker")
	user := Scan("/a/User.kt", "package com.example\n@Marker class User")
	other := Scan("/b/Other.kt", "package com.other\nimport com.example.*\n@Marker class Other\n@Unknown class Free")

	ResolveAnnotations([]*FileIndex{marker, user, other})

	assert.Equal(t, []string{"com.example.Marker"}, user.Declarations[0].Annotations)
	assert.Equal(t, []string{"com.example.Marker"}, other.Declarations[0].Annotations)
	assert.Equal(t, []string{"Unknown"}, other.Declarations[1].Annotations)
}

func TestStripCommentsAndStrings(t *testing.T) {
	src := "a // x\nb /* y\nz */ c \"s{\" '}' \"\"\"t\n{\"\"\" d"
	out := stripCommentsAndStrings(src)
	assert.Len(t, out, len(src))
	assert.NotContains(t, out, "x")
	assert.NotContains(t, out, "y")
	assert.NotContains(t, out, "{")
	assert.NotContains(t, out, "}")
	assert.Contains(t, out, "d")
	assert.Equal(t, 3, countByte(out, '\n'))
}

func countByte(s string, b byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			n++
		}
	}
	return n
}
